// Package remote is the test session engine's view of the progress API.
package remote

import (
	"context"

	"lms_backend/internal/model"
)

// Client is the capability handed to a test session at construction.
type Client interface {
	GetAssignment(ctx context.Context, assignmentID uint) (*model.TestAssignment, error)
	StartAttempt(ctx context.Context, assignmentID uint) (*model.TestAttempt, error)
	SyncAttempt(ctx context.Context, attemptID uint, req model.SyncRequest) (*model.SyncResult, error)
	CompleteAttempt(ctx context.Context, attemptID uint, req model.CompleteRequest) (*model.TestAttempt, error)
	UpdateAttemptStatus(ctx context.Context, attemptID uint, status model.AttemptStatus) (*model.TestAttempt, error)
	GetProgress(ctx context.Context, assignmentID uint) (*model.Progress, error)
	GetChapters(ctx context.Context, assignmentID uint) ([]model.PlayerChapter, error)
}
