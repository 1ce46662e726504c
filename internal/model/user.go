package model

// UserRole 来自 JWT claims，用户表由认证服务维护
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// CanReview reports whether the role may read other users' assignments.
func (r UserRole) CanReview() bool {
	return r == Teacher || r == Admin
}
