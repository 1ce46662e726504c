package countdown

import (
	"sync"
	"time"

	"lms_backend/internal/clock"
)

// Timer recomputes a State on every tick until the deadline passes. The tick
// that first observes the deadline freezes the state and cancels itself.
type Timer struct {
	mu       sync.Mutex
	sched    clock.Scheduler
	deadline time.Time
	interval time.Duration
	onTick   func(State)

	state   State
	task    clock.Task
	running bool
}

// NewTimer ticks once per second towards deadline.
func NewTimer(sched clock.Scheduler, deadline time.Time, onTick func(State)) *Timer {
	return newTimer(sched, deadline, time.Second, onTick)
}

// NewTimerFromRemaining counts down remaining from the scheduler's now.
func NewTimerFromRemaining(sched clock.Scheduler, remaining time.Duration, onTick func(State)) *Timer {
	return NewTimer(sched, sched.Now().Add(remaining), onTick)
}

func newTimer(sched clock.Scheduler, deadline time.Time, interval time.Duration, onTick func(State)) *Timer {
	return &Timer{
		sched:    sched,
		deadline: deadline,
		interval: interval,
		onTick:   onTick,
	}
}

// Start computes the initial state and schedules ticks unless already overdue.
// onTick is not invoked for the initial state.
func (t *Timer) Start() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return t.state
	}
	t.state = Compute(Remaining(t.deadline, t.sched.Now()))
	if t.state.IsOverdue {
		return t.state
	}
	t.running = true
	t.task = t.sched.Every(t.interval, t.tick)
	return t.state
}

func (t *Timer) tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	st := Compute(Remaining(t.deadline, t.sched.Now()))
	t.state = st
	if st.IsOverdue {
		t.running = false
		if t.task != nil {
			t.task.Stop()
			t.task = nil
		}
	}
	cb := t.onTick
	t.mu.Unlock()

	if cb != nil {
		cb(st)
	}
}

// State returns the last computed state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether ticks are still scheduled.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Stop cancels future ticks without changing the last state.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	if t.task != nil {
		t.task.Stop()
		t.task = nil
	}
}

// QuizTimer is the per-minute variant used by quiz chapters.
type QuizTimer struct {
	timer *Timer
}

func NewQuizTimer(sched clock.Scheduler, deadline time.Time, onTick func(QuizState)) *QuizTimer {
	var cb func(State)
	if onTick != nil {
		cb = func(s State) { onTick(s.Quiz()) }
	}
	return &QuizTimer{timer: newTimer(sched, deadline, time.Minute, cb)}
}

func (q *QuizTimer) Start() QuizState { return q.timer.Start().Quiz() }

func (q *QuizTimer) State() QuizState { return q.timer.State().Quiz() }

func (q *QuizTimer) Running() bool { return q.timer.Running() }

func (q *QuizTimer) Stop() { q.timer.Stop() }
