package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAssignments map[uint]*model.Assignment

func (f fakeAssignments) FindByID(id uint) (*model.Assignment, error) {
	a, ok := f[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeAttempts struct {
	mu         sync.Mutex
	nextID     uint
	rows       map[uint]*model.TestAttempt
	assignment func(id uint) *model.Assignment
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{rows: make(map[uint]*model.TestAttempt)}
}

func (f *fakeAttempts) clone(a *model.TestAttempt) *model.TestAttempt {
	cp := *a
	cp.Answers = a.Answers.Clone()
	return &cp
}

func (f *fakeAttempts) Create(attempt *model.TestAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	attempt.ID = f.nextID
	f.rows[attempt.ID] = f.clone(attempt)
	return nil
}

func (f *fakeAttempts) Update(attempt *model.TestAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[attempt.ID] = f.clone(attempt)
	return nil
}

func (f *fakeAttempts) FindByID(id uint) (*model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.clone(a), nil
}

func (f *fakeAttempts) FindLatestResumable(assignmentID, userID uint) (*model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.TestAttempt
	for _, a := range f.rows {
		if a.AssignmentID == assignmentID && a.UserID == userID && a.Status.Resumable() {
			if best == nil || a.AttemptNumber > best.AttemptNumber {
				best = a
			}
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.clone(best), nil
}

func (f *fakeAttempts) CountByAssignmentAndUser(assignmentID, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.rows {
		if a.AssignmentID == assignmentID && a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttempts) ListByAssignment(assignmentID uint) ([]model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range f.rows {
		if a.AssignmentID == assignmentID {
			out = append(out, *f.clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (f *fakeAttempts) ApplySync(attemptID uint, req model.SyncRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[attemptID]
	if !ok || a.SyncRevision >= req.Revision || !a.Status.Open() {
		return false, nil
	}
	a.SyncRevision = req.Revision
	a.CurrentPage = req.CurrentPage
	a.TimeSpentSeconds = req.TimeSpentSeconds
	a.Status = model.AttemptInProgress
	if a.Answers == nil {
		a.Answers = model.Answers{}
	}
	for k, v := range req.Answers {
		a.Answers[k] = v
	}
	return true, nil
}

func (f *fakeAttempts) SaveAnswers(attemptID uint, answers model.Answers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.rows[attemptID]; ok {
		a.Answers = answers.Clone()
	}
	return nil
}

func (f *fakeAttempts) UpdateStatus(attemptID uint, from []model.AttemptStatus, to model.AttemptStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[attemptID]
	if !ok || !containsStatus(from, a.Status) {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (f *fakeAttempts) FindOverdue(cutoff time.Time, limit int) ([]model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range f.rows {
		deadline := attemptDeadline(f.assignment(a.AssignmentID), a)
		if a.Status.Resumable() && !deadline.IsZero() && deadline.Before(cutoff) {
			out = append(out, *f.clone(a))
		}
	}
	return out, nil
}

func (f *fakeAttempts) get(id uint) *model.TestAttempt {
	a, _ := f.FindByID(id)
	return a
}

type fakeProgress struct {
	chapters []model.Chapter
	rows     []model.ChapterProgress
}

func (f *fakeProgress) ListChapters(courseID uint) ([]model.Chapter, error) {
	var out []model.Chapter
	for _, c := range f.chapters {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeProgress) ListProgress(assignmentID, userID uint) ([]model.ChapterProgress, error) {
	var out []model.ChapterProgress
	for _, p := range f.rows {
		if p.AssignmentID == assignmentID && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProgress) Upsert(p *model.ChapterProgress) error {
	for i, row := range f.rows {
		if row.AssignmentID == p.AssignmentID && row.ChapterID == p.ChapterID && row.UserID == p.UserID {
			f.rows[i].IsCompleted = row.IsCompleted || p.IsCompleted
			if len(p.Answers) > 0 {
				f.rows[i].Answers = p.Answers
			}
			return nil
		}
	}
	f.rows = append(f.rows, *p)
	return nil
}

type fakeArchive struct {
	mu       sync.Mutex
	archived []uint
}

func (f *fakeArchive) ArchiveAttempt(ctx context.Context, a *model.Assignment, attempt *model.TestAttempt, result grading.Result) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, attempt.ID)
	return "/archives/x.json", nil
}

func choice(id uint, correct string, points int) model.Question {
	return model.Question{
		BaseModel:     model.BaseModel{ID: id},
		Type:          model.QuestionSingle,
		Options:       []byte(`["a","b","c"]`),
		CorrectAnswer: []byte(correct),
		Points:        points,
	}
}

type harness struct {
	clock       *clock.Manual
	assignments fakeAssignments
	attempts    *fakeAttempts
	progress    *fakeProgress
	archive     *fakeArchive
	svc         *AttemptService
	progressSvc *ProgressService
}

const (
	studentID = uint(5)
	teacherID = uint(9)
)

func newHarness(durationMinutes, maxAttempts int) *harness {
	h := &harness{
		clock: clock.NewManual(epoch),
		assignments: fakeAssignments{
			7: {
				BaseModel:   model.BaseModel{ID: 7},
				TestID:      3,
				CourseID:    11,
				UserID:      studentID,
				MaxAttempts: maxAttempts,
				Test: model.Test{
					BaseModel:       model.BaseModel{ID: 3},
					PassingScore:    2,
					DurationMinutes: durationMinutes,
					Questions: []model.Question{
						choice(1, `0`, 1), choice(2, `1`, 1), choice(3, `2`, 1),
						{BaseModel: model.BaseModel{ID: 4}, Type: model.QuestionOpen, Points: 5},
					},
				},
			},
		},
		attempts: newFakeAttempts(),
		progress: &fakeProgress{chapters: []model.Chapter{
			{BaseModel: model.BaseModel{ID: 21}, CourseID: 11, Order: 1},
			{BaseModel: model.BaseModel{ID: 22}, CourseID: 11, Order: 2},
		}},
		archive: &fakeArchive{},
	}
	h.attempts.assignment = func(id uint) *model.Assignment {
		return h.assignments[id]
	}
	assignments := NewAssignmentService(h.assignments, nil, h.clock, time.Minute)
	h.progressSvc = NewProgressService(h.progress, assignments)
	h.svc = NewAttemptService(h.attempts, assignments, h.progressSvc, h.archive, nil, h.clock, 30*time.Second)
	return h
}
