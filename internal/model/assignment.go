package model

import "time"

// swagger:model Assignment
type Assignment struct {
	BaseModel

	TestID       uint       `gorm:"index;type:bigint unsigned" json:"testId"`
	CourseID     uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	UserID       uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	MaxAttempts  int        `gorm:"default:1" json:"maxAttempts"`
	DeadlineDate *time.Time `json:"deadlineDate,omitempty"`
	Test         Test       `gorm:"foreignKey:TestID" json:"test"`
}

func (Assignment) TableName() string {
	return "test_assignments"
}

// TestAssignment 是下发给答题端的只读视图
type TestAssignment struct {
	ID           uint       `json:"id"`
	TestID       uint       `json:"testId"`
	CourseID     uint       `json:"courseId"`
	UserID       uint       `json:"userId"`
	MaxAttempts  int        `json:"maxAttempts"`
	DeadlineDate *time.Time `json:"deadlineDate,omitempty"`
	Test         Test       `json:"test"`
}

// View builds the wire form, filling in the derived questions count.
func (a *Assignment) View() *TestAssignment {
	t := a.Test
	t.QuestionsCount = len(t.Questions)
	return &TestAssignment{
		ID:           a.ID,
		TestID:       a.TestID,
		CourseID:     a.CourseID,
		UserID:       a.UserID,
		MaxAttempts:  a.MaxAttempts,
		DeadlineDate: a.DeadlineDate,
		Test:         t,
	}
}

// QuestionByID 按 ID 查找题目
func (a *TestAssignment) QuestionByID(id uint) (Question, bool) {
	for _, q := range a.Test.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
