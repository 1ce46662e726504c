package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lms_backend/internal/model"
)

type fakeClient struct {
	mu sync.Mutex

	assignment *model.TestAssignment
	attempt    *model.TestAttempt
	getErr     error
	startErr   error

	// syncErrs are returned by successive SyncAttempt calls, then nil.
	syncErrs []error
	syncs    []model.SyncRequest
	// applied is the newest revision the server kept; older requests are ignored.
	applied uint64
	// staleBy, when non-zero, makes the server always run that far ahead of a request.
	staleBy uint64
	// gate, when set, holds every SyncAttempt until it receives a value.
	gate    chan struct{}
	entered chan struct{}

	completeErr error
	completes   []model.CompleteRequest
	statuses    []model.AttemptStatus
}

func newFakeClient(assignment *model.TestAssignment, attempt *model.TestAttempt) *fakeClient {
	return &fakeClient{assignment: assignment, attempt: attempt, applied: attempt.SyncRevision, entered: make(chan struct{}, 16)}
}

func (f *fakeClient) GetAssignment(ctx context.Context, assignmentID uint) (*model.TestAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.assignment, nil
}

func (f *fakeClient) StartAttempt(ctx context.Context, assignmentID uint) (*model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	a := *f.attempt
	a.Answers = f.attempt.Answers.Clone()
	return &a, nil
}

func (f *fakeClient) SyncAttempt(ctx context.Context, attemptID uint, req model.SyncRequest) (*model.SyncResult, error) {
	f.mu.Lock()
	f.syncs = append(f.syncs, req)
	var err error
	if len(f.syncErrs) > 0 {
		err, f.syncErrs = f.syncErrs[0], f.syncErrs[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	f.entered <- struct{}{}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleBy > 0 {
		f.applied = req.Revision + f.staleBy
	}
	if req.Revision <= f.applied {
		return &model.SyncResult{Applied: false, SyncRevision: f.applied}, nil
	}
	f.applied = req.Revision
	return &model.SyncResult{Applied: true, SyncRevision: req.Revision}, nil
}

func (f *fakeClient) CompleteAttempt(ctx context.Context, attemptID uint, req model.CompleteRequest) (*model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes = append(f.completes, req)
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	a := *f.attempt
	score := req.Score
	a.Status = model.AttemptCompleted
	a.Score = &score
	a.Answers = req.Answers
	return &a, nil
}

func (f *fakeClient) UpdateAttemptStatus(ctx context.Context, attemptID uint, status model.AttemptStatus) (*model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	a := *f.attempt
	a.Status = status
	return &a, nil
}

func (f *fakeClient) GetProgress(ctx context.Context, assignmentID uint) (*model.Progress, error) {
	return &model.Progress{}, nil
}

func (f *fakeClient) GetChapters(ctx context.Context, assignmentID uint) ([]model.PlayerChapter, error) {
	return nil, nil
}

func (f *fakeClient) syncCalls() []model.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SyncRequest(nil), f.syncs...)
}

func (f *fakeClient) statusCalls() []model.AttemptStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AttemptStatus(nil), f.statuses...)
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func choice(id uint, correct string, points int) model.Question {
	return model.Question{
		BaseModel:     model.BaseModel{ID: id},
		Type:          model.QuestionSingle,
		Options:       []byte(`["a","b","c"]`),
		CorrectAnswer: []byte(correct),
		Points:        points,
	}
}

func fixture(durationMinutes, maxAttempts int) (*model.TestAssignment, *model.TestAttempt) {
	assignment := &model.TestAssignment{
		ID:          7,
		TestID:      3,
		MaxAttempts: maxAttempts,
		Test: model.Test{
			BaseModel:       model.BaseModel{ID: 3},
			Title:           "Quiz",
			PassingScore:    2,
			DurationMinutes: durationMinutes,
			Questions:       []model.Question{choice(1, `0`, 1), choice(2, `1`, 1), choice(3, `2`, 1)},
		},
	}
	attempt := &model.TestAttempt{
		BaseModel:     model.BaseModel{ID: 42},
		AssignmentID:  7,
		AttemptNumber: 1,
		StartedAt:     epoch,
		Status:        model.AttemptStarted,
		Answers:       model.Answers{},
	}
	return assignment, attempt
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }
