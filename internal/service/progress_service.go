package service

import (
	"context"
	"encoding/json"

	"lms_backend/internal/model"
	"lms_backend/internal/unlock"
	"lms_backend/internal/util"
)

type ProgressStore interface {
	ListChapters(courseID uint) ([]model.Chapter, error)
	ListProgress(assignmentID, userID uint) ([]model.ChapterProgress, error)
	Upsert(p *model.ChapterProgress) error
}

type ProgressService struct {
	Store       ProgressStore
	Assignments *AssignmentService
}

func NewProgressService(store ProgressStore, assignments *AssignmentService) *ProgressService {
	return &ProgressService{Store: store, Assignments: assignments}
}

// Get 返回分配所属学生的章节进度
func (s *ProgressService) Get(ctx context.Context, assignmentID, userID uint, role model.UserRole) (*model.Progress, error) {
	a, err := s.Assignments.Get(ctx, assignmentID, userID, role)
	if err != nil {
		return nil, err
	}
	return s.progress(a)
}

// Chapters 按顺序返回章节及其锁定状态
func (s *ProgressService) Chapters(ctx context.Context, assignmentID, userID uint, role model.UserRole) ([]model.PlayerChapter, error) {
	a, err := s.Assignments.Get(ctx, assignmentID, userID, role)
	if err != nil {
		return nil, err
	}
	return s.resolve(a)
}

// MarkChapter 记录章节完成情况，锁定的章节不能被标记
func (s *ProgressService) MarkChapter(a *model.Assignment, chapterID uint, completed bool, answers model.Answers) error {
	chapters, err := s.resolve(a)
	if err != nil {
		return err
	}
	if !unlock.Accessible(chapters, chapterID) {
		return util.ErrChapterLocked
	}

	p := &model.ChapterProgress{
		AssignmentID: a.ID,
		ChapterID:    chapterID,
		UserID:       a.UserID,
		IsCompleted:  completed,
	}
	if len(answers) > 0 {
		buf, err := json.Marshal(answers)
		if err != nil {
			return err
		}
		p.Answers = buf
	}
	return s.Store.Upsert(p)
}

func (s *ProgressService) progress(a *model.Assignment) (*model.Progress, error) {
	rows, err := s.Store.ListProgress(a.ID, a.UserID)
	if err != nil {
		return nil, err
	}
	out := &model.Progress{Items: make([]model.ProgressItem, 0, len(rows))}
	for _, row := range rows {
		out.Items = append(out.Items, model.ProgressItem{
			ChapterID:   row.ChapterID,
			IsCompleted: row.IsCompleted,
			Answers:     json.RawMessage(row.Answers),
		})
	}
	return out, nil
}

func (s *ProgressService) resolve(a *model.Assignment) ([]model.PlayerChapter, error) {
	chapters, err := s.Store.ListChapters(a.CourseID)
	if err != nil {
		return nil, err
	}
	p, err := s.progress(a)
	if err != nil {
		return nil, err
	}
	return unlock.Resolve(chapters, p.CompletedMap()), nil
}
