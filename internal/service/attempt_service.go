package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	attemptLockTTL = 10 * time.Second
	sweepBatchSize = 100
)

type AttemptStore interface {
	Create(attempt *model.TestAttempt) error
	Update(attempt *model.TestAttempt) error
	FindByID(id uint) (*model.TestAttempt, error)
	FindLatestResumable(assignmentID, userID uint) (*model.TestAttempt, error)
	CountByAssignmentAndUser(assignmentID, userID uint) (int64, error)
	ListByAssignment(assignmentID uint) ([]model.TestAttempt, error)
	ApplySync(attemptID uint, req model.SyncRequest) (bool, error)
	SaveAnswers(attemptID uint, answers model.Answers) error
	UpdateStatus(attemptID uint, from []model.AttemptStatus, to model.AttemptStatus) (bool, error)
	FindOverdue(cutoff time.Time, limit int) ([]model.TestAttempt, error)
}

type Archiver interface {
	ArchiveAttempt(ctx context.Context, a *model.Assignment, attempt *model.TestAttempt, result grading.Result) (string, error)
}

type AttemptService struct {
	Attempts    AttemptStore
	Assignments *AssignmentService
	Progress    *ProgressService
	Archive     Archiver
	Redis       *redis.Client
	Clock       clock.Scheduler

	grace atomic.Int64
}

func NewAttemptService(attempts AttemptStore, assignments *AssignmentService, progress *ProgressService, archive Archiver, rdb *redis.Client, sched clock.Scheduler, grace time.Duration) *AttemptService {
	s := &AttemptService{
		Attempts:    attempts,
		Assignments: assignments,
		Progress:    progress,
		Archive:     archive,
		Redis:       rdb,
		Clock:       sched,
	}
	s.SetGrace(grace)
	return s
}

// SetGrace 截止后仍接受同步的宽限时间，配置热更新时调用
func (s *AttemptService) SetGrace(d time.Duration) {
	s.grace.Store(int64(d))
}

func (s *AttemptService) Grace() time.Duration {
	return time.Duration(s.grace.Load())
}

// Start 继续未结束的尝试，或在次数允许时新建一次
func (s *AttemptService) Start(ctx context.Context, assignmentID, userID uint, role model.UserRole) (*model.TestAttempt, error) {
	a, err := s.Assignments.Get(ctx, assignmentID, userID, role)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	unlock, err := s.lock(ctx, fmt.Sprintf("lms:lock:start:%d:%d", assignmentID, userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.Clock.Now()
	latest, err := s.Attempts.FindLatestResumable(assignmentID, userID)
	switch {
	case err == nil:
		if !s.overdue(a, latest, now) {
			if latest.Status == model.AttemptInterrupted {
				if _, err := s.Attempts.UpdateStatus(latest.ID, []model.AttemptStatus{model.AttemptInterrupted}, model.AttemptInProgress); err != nil {
					return nil, err
				}
				latest.Status = model.AttemptInProgress
				monitoring.AttemptTransitions.WithLabelValues(string(model.AttemptInProgress)).Inc()
			}
			logger.L().Info("Resuming test attempt", zap.Uint("attempt_id", latest.ID), zap.Uint("user_id", userID))
			return latest, nil
		}
		if _, err := s.expire(ctx, a, latest); err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if a.DeadlineDate != nil && !now.Before(*a.DeadlineDate) {
		return nil, util.ErrAttemptClosed
	}

	count, err := s.Attempts.CountByAssignmentAndUser(assignmentID, userID)
	if err != nil {
		return nil, err
	}
	if a.MaxAttempts > 0 && int(count) >= a.MaxAttempts {
		return nil, util.ErrAttemptsExhausted
	}

	attempt := &model.TestAttempt{
		AssignmentID:  assignmentID,
		UserID:        userID,
		AttemptNumber: int(count) + 1,
		StartedAt:     now,
		Status:        model.AttemptStarted,
		MaxScore:      grading.Score(a.Test, nil).MaxScore,
		Answers:       model.Answers{},
	}
	if err := s.Attempts.Create(attempt); err != nil {
		return nil, err
	}
	monitoring.AttemptTransitions.WithLabelValues(string(model.AttemptStarted)).Inc()
	logger.L().Info("Test attempt started",
		zap.Uint("attempt_id", attempt.ID),
		zap.Uint("assignment_id", assignmentID),
		zap.Int("attempt_number", attempt.AttemptNumber))
	return attempt, nil
}

// Sync upsert 答案；revision 不大于已应用版本时返回 Applied=false
func (s *AttemptService) Sync(ctx context.Context, attemptID, userID uint, req model.SyncRequest) (*model.SyncResult, error) {
	attempt, a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.Open() {
		return nil, util.ErrAttemptClosed
	}
	if s.overdue(a, attempt, s.Clock.Now()) {
		if _, err := s.expire(ctx, a, attempt); err != nil {
			return nil, err
		}
		return nil, util.ErrAttemptClosed
	}

	view := a.View()
	for qid := range req.Answers {
		if _, ok := view.QuestionByID(qid); !ok {
			logger.L().Warn("Dropping answer for unknown question",
				zap.Uint("attempt_id", attemptID), zap.Uint("question_id", qid))
			delete(req.Answers, qid)
		}
	}

	applied, err := s.Attempts.ApplySync(attemptID, req)
	if err != nil {
		monitoring.SyncFlushes.WithLabelValues("server", "error").Inc()
		return nil, err
	}
	if !applied {
		monitoring.SyncFlushes.WithLabelValues("server", "stale").Inc()
		logger.L().Debug("Stale sync ignored",
			zap.Uint("attempt_id", attemptID),
			zap.Uint64("revision", req.Revision),
			zap.Uint64("applied_revision", attempt.SyncRevision))
		return &model.SyncResult{Applied: false, SyncRevision: attempt.SyncRevision}, nil
	}
	monitoring.SyncFlushes.WithLabelValues("server", "ok").Inc()
	monitoring.SyncedAnswers.Observe(float64(len(req.Answers)))

	if req.ChapterID != nil && s.Progress != nil {
		if err := s.Progress.MarkChapter(a, *req.ChapterID, req.Completed, req.Answers); err != nil {
			return nil, err
		}
	}
	if req.QuestionID != nil {
		logger.L().Debug("Question checkpoint",
			zap.Uint("attempt_id", attemptID), zap.Uint("question_id", *req.QuestionID), zap.Bool("completed", req.Completed))
	}

	return &model.SyncResult{Applied: true, SyncRevision: req.Revision}, nil
}

// Complete 以服务端评分为准；重复提交返回已完成的结果
func (s *AttemptService) Complete(ctx context.Context, attemptID, userID uint, req model.CompleteRequest) (*model.TestAttempt, error) {
	unlock, err := s.lock(ctx, fmt.Sprintf("lms:lock:attempt:%d", attemptID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempt, a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptCompleted {
		return attempt, nil
	}
	if attempt.Status.Terminal() {
		return nil, util.ErrAttemptClosed
	}

	answers := attempt.Answers.Clone()
	for qid, v := range req.Answers {
		answers[qid] = v
	}
	view := a.View()
	for qid := range answers {
		if _, ok := view.QuestionByID(qid); !ok {
			delete(answers, qid)
		}
	}
	if err := s.Attempts.SaveAnswers(attemptID, answers); err != nil {
		return nil, err
	}

	result := grading.Score(a.Test, answers)
	if req.Score != result.Score {
		logger.L().Warn("Client score differs from server grading",
			zap.Uint("attempt_id", attemptID), zap.Int("client", req.Score), zap.Int("server", result.Score))
	}

	attempt.Answers = answers
	if err := s.finalize(ctx, a, attempt, model.AttemptCompleted, result); err != nil {
		return nil, err
	}
	return attempt, nil
}

// UpdateStatus 处理客户端上报的状态变化，completed 必须走 Complete
func (s *AttemptService) UpdateStatus(ctx context.Context, attemptID, userID uint, status model.AttemptStatus) (*model.TestAttempt, error) {
	var from []model.AttemptStatus
	switch status {
	case model.AttemptInterrupted:
		from = []model.AttemptStatus{model.AttemptStarted, model.AttemptInProgress}
	case model.AttemptInProgress:
		from = []model.AttemptStatus{model.AttemptStarted, model.AttemptInterrupted}
	case model.AttemptExpired, model.AttemptAbandoned:
		from = []model.AttemptStatus{model.AttemptStarted, model.AttemptInProgress, model.AttemptInterrupted}
	default:
		return nil, util.ErrInvalidStatus
	}

	unlock, err := s.lock(ctx, fmt.Sprintf("lms:lock:attempt:%d", attemptID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempt, a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == status {
		return attempt, nil
	}
	if !containsStatus(from, attempt.Status) {
		if attempt.Status.Terminal() {
			return nil, util.ErrAttemptClosed
		}
		return nil, util.ErrInvalidStatus
	}

	if status == model.AttemptExpired {
		return s.expire(ctx, a, attempt)
	}
	if status == model.AttemptInProgress && s.overdue(a, attempt, s.Clock.Now()) {
		if _, err := s.expire(ctx, a, attempt); err != nil {
			return nil, err
		}
		return nil, util.ErrAttemptClosed
	}

	ok, err := s.Attempts.UpdateStatus(attemptID, from, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrInvalidStatus
	}
	attempt.Status = status
	monitoring.AttemptTransitions.WithLabelValues(string(status)).Inc()
	logger.L().Info("Attempt status changed", zap.Uint("attempt_id", attemptID), zap.String("status", string(status)))
	return attempt, nil
}

// List 供教师查看某个分配下的全部尝试
func (s *AttemptService) List(ctx context.Context, assignmentID, userID uint, role model.UserRole) ([]model.TestAttempt, error) {
	if _, err := s.Assignments.Get(ctx, assignmentID, userID, role); err != nil {
		return nil, err
	}
	return s.Attempts.ListByAssignment(assignmentID)
}

// Deadline 返回尝试的截止时刻（时长与分配截止日期取较早者），不限时为零值
func (s *AttemptService) Deadline(ctx context.Context, attemptID, userID uint) (time.Time, error) {
	attempt, a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return time.Time{}, err
	}
	return attemptDeadline(a, attempt), nil
}

// SweepExpired 把超时未提交的尝试标记为 expired 并按已同步答案评分
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	unlock, err := s.lock(ctx, "lms:lock:sweep")
	if err != nil {
		if errors.Is(err, util.ErrBusy) {
			return 0, nil
		}
		return 0, err
	}
	defer unlock()

	overdue, err := s.Attempts.FindOverdue(s.Clock.Now().Add(-s.Grace()), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, row := range overdue {
		attempt, err := s.Attempts.FindByID(row.ID)
		if err != nil {
			logger.L().Error("Load overdue attempt failed", zap.Uint("attempt_id", row.ID), zap.Error(err))
			continue
		}
		a, err := s.Assignments.load(ctx, attempt.AssignmentID)
		if err != nil {
			logger.L().Error("Load assignment failed", zap.Uint("assignment_id", attempt.AssignmentID), zap.Error(err))
			continue
		}
		if _, err := s.expire(ctx, a, attempt); err != nil {
			logger.L().Error("Expire attempt failed", zap.Uint("attempt_id", attempt.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// expire 关闭尝试并按已同步的答案自动评分
func (s *AttemptService) expire(ctx context.Context, a *model.Assignment, attempt *model.TestAttempt) (*model.TestAttempt, error) {
	result := grading.Score(a.Test, attempt.Answers)
	if err := s.finalize(ctx, a, attempt, model.AttemptExpired, result); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *AttemptService) finalize(ctx context.Context, a *model.Assignment, attempt *model.TestAttempt, status model.AttemptStatus, result grading.Result) error {
	now := s.Clock.Now()
	score := result.Score
	attempt.Status = status
	attempt.CompletedAt = &now
	attempt.Score = &score
	attempt.MaxScore = result.MaxScore
	attempt.Passed = result.Passed
	attempt.NeedsManual = result.NeedsManual
	if spent := int(now.Sub(attempt.StartedAt) / time.Second); spent > attempt.TimeSpentSeconds {
		if d := a.Test.DurationMinutes * 60; d > 0 && spent > d {
			spent = d
		}
		attempt.TimeSpentSeconds = spent
	}
	if err := s.Attempts.Update(attempt); err != nil {
		return err
	}
	monitoring.AttemptTransitions.WithLabelValues(string(status)).Inc()

	for _, inc := range result.Inconsistencies {
		logger.L().Warn("Grading inconsistency",
			zap.Uint("attempt_id", attempt.ID), zap.Uint("question_id", inc.QuestionID), zap.String("reason", inc.Reason))
	}
	logger.L().Info("Attempt closed",
		zap.Uint("attempt_id", attempt.ID),
		zap.String("status", string(status)),
		zap.Int("score", result.Score),
		zap.Int("max_score", result.MaxScore),
		zap.Bool("passed", result.Passed))

	if s.Archive != nil {
		if url, err := s.Archive.ArchiveAttempt(ctx, a, attempt, result); err != nil {
			logger.L().Error("Archive attempt failed", zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		} else {
			logger.L().Debug("Attempt archived", zap.Uint("attempt_id", attempt.ID), zap.String("url", url))
		}
	}
	return nil
}

// owned 加载尝试并校验归属
func (s *AttemptService) owned(ctx context.Context, attemptID, userID uint) (*model.TestAttempt, *model.Assignment, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAttemptNotFound
		}
		return nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, util.ErrPermissionDenied
	}
	a, err := s.Assignments.load(ctx, attempt.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, a, nil
}

func (s *AttemptService) overdue(a *model.Assignment, attempt *model.TestAttempt, now time.Time) bool {
	deadline := attemptDeadline(a, attempt)
	return !deadline.IsZero() && now.After(deadline.Add(s.Grace()))
}

func (s *AttemptService) lock(ctx context.Context, key string) (func(), error) {
	release, err := database.AcquireLock(ctx, s.Redis, key, attemptLockTTL)
	if errors.Is(err, database.ErrLockHeld) {
		return nil, util.ErrBusy
	}
	return release, err
}

func attemptDeadline(a *model.Assignment, attempt *model.TestAttempt) time.Time {
	deadline := attempt.Deadline(a.Test.DurationMinutes)
	if d := a.DeadlineDate; d != nil && (deadline.IsZero() || d.Before(deadline)) {
		deadline = *d
	}
	return deadline
}

func containsStatus(list []model.AttemptStatus, s model.AttemptStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
