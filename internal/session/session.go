package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"lms_backend/internal/clock"
	"lms_backend/internal/countdown"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/remote"
	"lms_backend/pkg/logger"
)

// Session runs one timed test attempt: it loads the assignment, owns the
// answer store, drives the countdown and keeps the server in sync.
type Session struct {
	client  remote.Client
	sched   clock.Scheduler
	log     *zap.Logger
	syncCfg SyncConfig

	mu        sync.Mutex
	state     State
	store     *AnswerStore
	sync      *SyncCoordinator
	timer     *countdown.Timer
	finishing bool
	listeners []func(State)

	page atomic.Int64
	bg   sync.WaitGroup
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithSyncConfig(cfg SyncConfig) Option {
	return func(s *Session) { s.syncCfg = cfg }
}

// WithListener registers fn to receive every state change.
func WithListener(fn func(State)) Option {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

func New(client remote.Client, sched clock.Scheduler, opts ...Option) *Session {
	s := &Session{
		client:  client,
		sched:   sched,
		log:     logger.L(),
		syncCfg: DefaultSyncConfig(),
		state:   State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init loads the assignment and starts or resumes an attempt. Any failure is
// an *InitError and leaves the session in StatusFailed.
func (s *Session) Init(ctx context.Context, assignmentID uint) error {
	s.mu.Lock()
	if s.state.Status == StatusInitializing || s.state.Status == StatusActive {
		s.mu.Unlock()
		return ErrBusy
	}
	s.teardownLocked()
	st := s.apply(InitStarted{AssignmentID: assignmentID})
	s.mu.Unlock()
	s.notify(st)

	log := s.log.With(zap.Uint("assignment_id", assignmentID))

	assignment, err := s.client.GetAssignment(ctx, assignmentID)
	if err != nil {
		return s.failInit(log, newInitError(assignmentID, err))
	}
	attempt, err := s.client.StartAttempt(ctx, assignmentID)
	if err != nil {
		return s.failInit(log, newInitError(assignmentID, err))
	}
	if !attempt.Status.Resumable() ||
		(assignment.MaxAttempts > 0 && attempt.AttemptNumber > assignment.MaxAttempts) {
		err := fmt.Errorf("%w: attempt %d is %s", remote.ErrAttemptsExhausted, attempt.AttemptNumber, attempt.Status)
		return s.failInit(log, newInitError(assignmentID, err))
	}

	store := NewAnswerStore()
	store.Seed(attempt.Answers)

	coord := NewSyncCoordinator(s.client, store, s.sched, attempt.ID, s.syncCfg, s.log)
	coord.SetRevision(attempt.SyncRevision)
	openedAt := s.sched.Now()
	baseSpent := attempt.TimeSpentSeconds
	coord.SetProgress(func() (int, int) {
		return int(s.page.Load()), baseSpent + int(s.sched.Now().Sub(openedAt)/time.Second)
	})
	coord.OnResult(s.onSyncResult)

	deadline := s.deadlineFor(assignment, attempt)

	s.mu.Lock()
	if s.state.Status != StatusInitializing {
		// Close 在加载期间被调用
		s.mu.Unlock()
		return ErrNotAccepting
	}
	s.store, s.sync = store, coord

	var remaining *countdown.State
	if !deadline.IsZero() {
		s.timer = countdown.NewTimer(s.sched, deadline, s.onTick)
		cs := s.timer.Start()
		remaining = &cs
	}
	st = s.apply(InitSucceeded{
		Assignment: assignment,
		Attempt:    attempt,
		Answers:    attempt.Answers,
		Remaining:  remaining,
	})
	s.page.Store(int64(st.CurrentQuestionIndex))
	if remaining != nil && remaining.IsOverdue {
		st = s.expireLocked()
	}
	s.mu.Unlock()
	s.notify(st)

	log.Info("Test session started",
		zap.Uint("attempt_id", attempt.ID),
		zap.Int("attempt_number", attempt.AttemptNumber),
		zap.Int("answers", len(attempt.Answers)))
	return nil
}

// Answer records value for questionID. Only accepted while active.
func (s *Session) Answer(questionID uint, value json.RawMessage) error {
	s.mu.Lock()
	if s.state.Status != StatusActive || s.finishing {
		s.mu.Unlock()
		return ErrNotAccepting
	}
	s.store.Set(questionID, value)
	st := s.apply(AnswerSet{QuestionID: questionID, Value: value})
	coord := s.sync
	s.mu.Unlock()

	coord.Schedule()
	s.notify(st)
	return nil
}

// Navigate moves to index, clamped to the question range, and returns the
// resulting index.
func (s *Session) Navigate(index int) int {
	s.mu.Lock()
	st := s.apply(Navigated{Index: index})
	s.page.Store(int64(st.CurrentQuestionIndex))
	s.mu.Unlock()
	s.notify(st)
	return st.CurrentQuestionIndex
}

func (s *Session) Next() int { return s.Navigate(s.State().CurrentQuestionIndex + 1) }

func (s *Session) Prev() int { return s.Navigate(s.State().CurrentQuestionIndex - 1) }

// Checkpoint flushes immediately, e.g. when a question or chapter is marked
// complete. A failure is reported but the session stays active.
func (s *Session) Checkpoint(ctx context.Context, opts FlushOptions) error {
	s.mu.Lock()
	if s.state.Status != StatusActive {
		s.mu.Unlock()
		return ErrNotAccepting
	}
	coord := s.sync
	s.mu.Unlock()
	return coord.Flush(ctx, opts)
}

// Finish flushes outstanding answers, scores them locally and completes the
// attempt. A failed flush does not block completion: the complete request
// carries every answer.
func (s *Session) Finish(ctx context.Context) (*grading.Result, error) {
	s.mu.Lock()
	if s.state.Status != StatusActive || s.finishing {
		s.mu.Unlock()
		return nil, ErrNotAccepting
	}
	s.finishing = true
	coord, store := s.sync, s.store
	assignment, attempt := s.state.Assignment, s.state.Attempt
	s.mu.Unlock()

	log := s.log.With(zap.Uint("attempt_id", attempt.ID))

	flushErr := coord.Flush(ctx)
	if flushErr != nil {
		log.Warn("Final flush failed, completing with full answer set", zap.Error(flushErr))
	}

	answers := store.All()
	result := grading.Score(assignment.Test, answers)
	for _, inc := range result.Inconsistencies {
		log.Warn("Grading inconsistency", zap.Uint("question_id", inc.QuestionID), zap.String("reason", inc.Reason))
	}

	final, completeErr := s.client.CompleteAttempt(ctx, attempt.ID, model.CompleteRequest{
		Score:   result.Score,
		Answers: answers,
	})
	if completeErr != nil {
		log.Error("Complete attempt failed", zap.Error(completeErr))
		status := model.AttemptCompleted
		if errors.Is(completeErr, remote.ErrAttemptClosed) {
			// 服务端已关闭（如超时清扫），本地不再标记为完成
			status = model.AttemptExpired
		}
		final = localCompletion(attempt, status, answers, result, s.sched.Now())
	} else if final.Score != nil && *final.Score != result.Score {
		log.Warn("Server score differs from local score",
			zap.Int("local", result.Score), zap.Int("server", *final.Score))
	}

	s.mu.Lock()
	s.stopLocked()
	st := s.apply(Finished{Attempt: final, Result: result})
	if err := errors.Join(flushErr, completeErr); err != nil {
		st = s.apply(ErrorRaised{Err: err})
	}
	s.finishing = false
	s.mu.Unlock()
	s.notify(st)

	log.Info("Test session finished",
		zap.Int("score", result.Score),
		zap.Int("max_score", result.MaxScore),
		zap.Bool("passed", result.Passed))
	return &result, completeErr
}

// Interrupt leaves an active session, e.g. when the user navigates away.
// Pending answers are flushed and the attempt is marked interrupted in the
// background.
func (s *Session) Interrupt() {
	s.mu.Lock()
	if s.state.Status != StatusActive || s.finishing {
		s.mu.Unlock()
		return
	}
	st := s.apply(Interrupted{})
	s.stopLocked()
	s.settleAsync(s.state.Attempt.ID, model.AttemptInterrupted)
	s.mu.Unlock()
	s.notify(st)
}

// Close stops the countdown and pending debounce. Requests already in flight
// are not cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	if s.state.Status == StatusInitializing {
		s.state = Reduce(s.state, InitFailed{Err: context.Canceled})
	}
}

// Wait blocks until background flushes and status updates have returned.
func (s *Session) Wait() {
	s.bg.Wait()
	s.mu.Lock()
	coord := s.sync
	s.mu.Unlock()
	if coord != nil {
		coord.Wait()
	}
}

// ClearError dismisses the current user-visible error.
func (s *Session) ClearError() {
	s.mu.Lock()
	st := s.apply(ErrorCleared{})
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) onTick(cs countdown.State) {
	s.mu.Lock()
	if s.state.Status != StatusActive {
		s.mu.Unlock()
		return
	}
	st := s.apply(Ticked{Countdown: cs})
	if cs.IsOverdue && !s.finishing {
		st = s.expireLocked()
	}
	s.mu.Unlock()
	s.notify(st)
}

// expireLocked ends the session on timeout: input is rejected from here on
// while pending answers are flushed best effort.
func (s *Session) expireLocked() State {
	st := s.apply(TimerExpired{})
	s.stopLocked()
	s.log.Info("Test session expired", zap.Uint("attempt_id", st.Attempt.ID))
	s.settleAsync(st.Attempt.ID, model.AttemptExpired)
	return st
}

// settleAsync flushes pending answers and then reports the attempt status.
func (s *Session) settleAsync(attemptID uint, status model.AttemptStatus) {
	coord := s.sync
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx := context.Background()
		if err := coord.Flush(ctx); err != nil {
			s.log.Warn("Flush before status change failed", zap.Uint("attempt_id", attemptID), zap.Error(err))
		}
		if _, err := s.client.UpdateAttemptStatus(ctx, attemptID, status); err != nil {
			s.log.Warn("Update attempt status failed",
				zap.Uint("attempt_id", attemptID), zap.String("status", string(status)), zap.Error(err))
		}
	}()
}

func (s *Session) onSyncResult(err error) {
	s.mu.Lock()
	var st State
	var serr *SyncError
	switch {
	case err != nil:
		st = s.apply(ErrorRaised{Err: err})
	case errors.As(s.state.Err, &serr):
		st = s.apply(ErrorCleared{})
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) deadlineFor(assignment *model.TestAssignment, attempt *model.TestAttempt) time.Time {
	deadline := attempt.Deadline(assignment.Test.DurationMinutes)
	if d := assignment.DeadlineDate; d != nil && (deadline.IsZero() || d.Before(deadline)) {
		deadline = *d
	}
	return deadline
}

func (s *Session) failInit(log *zap.Logger, err *InitError) error {
	log.Warn("Test session init failed", zap.String("reason", string(err.Reason)), zap.Error(err.Err))
	s.mu.Lock()
	st := s.apply(InitFailed{Err: err})
	s.mu.Unlock()
	s.notify(st)
	return err
}

func (s *Session) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.sync != nil {
		s.sync.Close()
	}
}

func (s *Session) teardownLocked() {
	s.stopLocked()
	s.timer = nil
}

// apply must be called with s.mu held.
func (s *Session) apply(e Event) State {
	s.state = Reduce(s.state, e)
	return s.state
}

func (s *Session) notify(st State) {
	for _, fn := range s.listeners {
		fn(st)
	}
}

func localCompletion(attempt *model.TestAttempt, status model.AttemptStatus, answers model.Answers, result grading.Result, now time.Time) *model.TestAttempt {
	a := *attempt
	score := result.Score
	a.Status = status
	a.CompletedAt = &now
	a.Score = &score
	a.MaxScore = result.MaxScore
	a.Passed = result.Passed
	a.NeedsManual = result.NeedsManual
	a.Answers = answers
	return &a
}
