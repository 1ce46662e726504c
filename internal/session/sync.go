package session

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"lms_backend/internal/clock"
	"lms_backend/internal/model"
	"lms_backend/internal/remote"
	"lms_backend/pkg/monitoring"
)

// SyncConfig tunes debouncing and retry of answer flushes.
type SyncConfig struct {
	Debounce    time.Duration
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Debounce:    1500 * time.Millisecond,
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2,
	}
}

// FlushOptions carries the optional completion marker of a checkpoint flush.
type FlushOptions struct {
	ChapterID  *uint
	QuestionID *uint
	Completed  bool
}

func (o FlushOptions) empty() bool {
	return o.ChapterID == nil && o.QuestionID == nil && !o.Completed
}

func (o *FlushOptions) merge(other FlushOptions) {
	if other.ChapterID != nil {
		o.ChapterID = other.ChapterID
	}
	if other.QuestionID != nil {
		o.QuestionID = other.QuestionID
	}
	o.Completed = o.Completed || other.Completed
}

// ProgressFunc reports the position to persist alongside answers.
type ProgressFunc func() (currentPage, timeSpentSeconds int)

type round struct {
	opts   FlushOptions
	done   chan struct{}
	err    error
	joined int
}

func newRound(opts FlushOptions) *round {
	return &round{opts: opts, done: make(chan struct{})}
}

// SyncCoordinator pushes pending answers to the server. At most one flush is
// in flight per attempt; triggers arriving meanwhile coalesce into a single
// follow-up round that carries everything pending when it starts.
type SyncCoordinator struct {
	client    remote.Client
	store     *AnswerStore
	sched     clock.Scheduler
	log       *zap.Logger
	cfg       SyncConfig
	attemptID uint
	progress  ProgressFunc
	onResult  func(error)
	sleep     func(context.Context, time.Duration) error

	mu       sync.Mutex
	revision uint64
	running  *round
	queued   *round
	debounce clock.Task
	lastErr  error
	closed   bool

	bg sync.WaitGroup
}

func NewSyncCoordinator(client remote.Client, store *AnswerStore, sched clock.Scheduler, attemptID uint, cfg SyncConfig, log *zap.Logger) *SyncCoordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &SyncCoordinator{
		client:    client,
		store:     store,
		sched:     sched,
		log:       log.With(zap.Uint("attempt_id", attemptID)),
		cfg:       cfg,
		attemptID: attemptID,
		progress:  func() (int, int) { return 0, 0 },
	}
	c.sleep = c.sleepSched
	return c
}

// SetProgress installs the source of currentPage / timeSpentSeconds.
func (c *SyncCoordinator) SetProgress(fn ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

// OnResult registers a callback invoked after every round that sent data,
// with nil on success or the *SyncError on failure.
func (c *SyncCoordinator) OnResult(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// Schedule (re)arms the debounce timer; a burst of edits yields one flush.
func (c *SyncCoordinator) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = c.sched.After(c.cfg.Debounce, func() {
		c.mu.Lock()
		c.debounce = nil
		c.mu.Unlock()
		c.FlushAsync(FlushOptions{})
	})
}

// Flush sends everything pending and blocks until the round that carries it
// finishes. When a flush is already running the call joins the follow-up round.
func (c *SyncCoordinator) Flush(ctx context.Context, opts ...FlushOptions) error {
	var o FlushOptions
	for _, opt := range opts {
		o.merge(opt)
	}

	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.running != nil {
		if c.queued == nil {
			c.queued = newRound(FlushOptions{})
		}
		r := c.queued
		r.opts.merge(o)
		r.joined++
		c.mu.Unlock()

		select {
		case <-r.done:
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r := newRound(o)
	c.running = r
	c.mu.Unlock()

	c.drive(ctx, r)
	return r.err
}

// FlushAsync runs Flush in the background; Wait blocks until it is done.
func (c *SyncCoordinator) FlushAsync(opts FlushOptions) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_ = c.Flush(context.Background(), opts)
	}()
}

// Wait blocks until background flushes have returned.
func (c *SyncCoordinator) Wait() {
	c.bg.Wait()
}

// Close cancels a pending debounce. An in-flight flush is left to finish.
func (c *SyncCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

func (c *SyncCoordinator) Pending() bool {
	return c.store.HasPending()
}

// LastError is the outcome of the most recent round that sent data.
func (c *SyncCoordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *SyncCoordinator) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// SetRevision seeds the counter with the revision the server already holds,
// so a resumed attempt keeps sending newer revisions. It never lowers it.
func (c *SyncCoordinator) SetRevision(rev uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rev > c.revision {
		c.revision = rev
	}
}

// advancePast moves the counter beyond rev and returns the next revision.
func (c *SyncCoordinator) advancePast(rev uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rev > c.revision {
		c.revision = rev
	}
	c.revision++
	return c.revision
}

// drive runs r and then any round that queued up behind it.
func (c *SyncCoordinator) drive(ctx context.Context, r *round) {
	for r != nil {
		r.err = c.flushOnce(ctx, r.opts)

		c.mu.Lock()
		next := c.queued
		c.queued = nil
		c.running = next
		c.mu.Unlock()

		close(r.done)
		r = next
		// 后续轮次不受首个调用方取消影响
		ctx = context.WithoutCancel(ctx)
	}
}

func (c *SyncCoordinator) flushOnce(ctx context.Context, opts FlushOptions) error {
	batch := c.store.Take()
	if len(batch.IDs) == 0 && opts.empty() {
		monitoring.SyncFlushes.WithLabelValues("client", "skipped").Inc()
		return nil
	}

	c.mu.Lock()
	c.revision++
	rev := c.revision
	progress := c.progress
	c.mu.Unlock()

	page, spent := progress()
	req := model.SyncRequest{
		Revision:         rev,
		ChapterID:        opts.ChapterID,
		QuestionID:       opts.QuestionID,
		Completed:        opts.Completed,
		Answers:          batch.Answers,
		CurrentPage:      page,
		TimeSpentSeconds: spent,
	}

	err := c.send(ctx, req)
	if err != nil {
		c.store.Requeue(batch.IDs)
		serr := &SyncError{AttemptID: c.attemptID, Pending: batch.IDs, Err: err}
		c.log.Warn("Answer sync failed", zap.Uint64("revision", rev), zap.Int("answers", len(batch.IDs)), zap.Error(err))
		monitoring.SyncFlushes.WithLabelValues("client", "error").Inc()
		c.report(serr)
		return serr
	}

	monitoring.SyncFlushes.WithLabelValues("client", "ok").Inc()
	monitoring.SyncedAnswers.Observe(float64(len(batch.IDs)))
	c.log.Debug("Answers synced", zap.Uint64("revision", rev), zap.Int("answers", len(batch.IDs)))
	c.report(nil)
	return nil
}

// send retries transient failures with exponential backoff and jitter. The
// same revision is reused, so a retry of an already applied request is a no-op.
// A response that reports a newer server revision re-sends under a higher one.
func (c *SyncCoordinator) send(ctx context.Context, req model.SyncRequest) error {
	var err error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
				return serr
			}
		}
		var res *model.SyncResult
		res, err = c.client.SyncAttempt(ctx, c.attemptID, req)
		if err == nil && res != nil && !res.Applied && res.SyncRevision > req.Revision {
			stale := req.Revision
			req.Revision = c.advancePast(res.SyncRevision)
			err = ErrStaleRevision
			c.log.Warn("Sync revision behind server",
				zap.Uint64("revision", stale),
				zap.Uint64("server_revision", res.SyncRevision),
				zap.Uint64("next_revision", req.Revision))
			continue
		}
		if err == nil || !remote.Retryable(err) {
			return err
		}
		c.log.Debug("Retrying answer sync", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (c *SyncCoordinator) backoff(attempt int) time.Duration {
	wait := float64(c.cfg.InitialWait) * math.Pow(c.cfg.Multiplier, float64(attempt-1))
	if limit := float64(c.cfg.MaxWait); limit > 0 && wait > limit {
		wait = limit
	}
	// ±25% 抖动
	jitter := wait * 0.25 * (2*rand.Float64() - 1)
	return time.Duration(wait + jitter)
}

func (c *SyncCoordinator) report(err error) {
	c.mu.Lock()
	c.lastErr = err
	fn := c.onResult
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// sleepSched waits on the scheduler so backoff follows the session clock.
func (c *SyncCoordinator) sleepSched(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	task := c.sched.After(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		task.Stop()
		return ctx.Err()
	}
}
