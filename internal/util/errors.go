package util

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptsExhausted  = errors.New("no attempts left for this assignment")
	ErrAttemptClosed      = errors.New("attempt is no longer open")
	ErrInvalidStatus      = errors.New("invalid attempt status transition")
	ErrChapterLocked      = errors.New("chapter is locked")
	// ErrBusy 同一尝试的并发写入被锁拒绝，客户端可重试
	ErrBusy = errors.New("attempt is being updated, retry later")
)
