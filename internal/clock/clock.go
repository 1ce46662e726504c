// Package clock abstracts time so that recurring ticks and debounce timers
// can be driven by a real clock in production and advanced by hand in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled callback. Stop reports whether the call prevented a
// future run; it is safe to call more than once.
type Task interface {
	Stop() bool
}

// Scheduler creates cancellable one-shot and recurring tasks.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Task
	Every(d time.Duration, fn func()) Task
}

// Real is the wall-clock scheduler.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

func (Real) Every(d time.Duration, fn func()) Task {
	t := &realTicker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type realTicker struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

func (t *realTicker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}

// Manual is a virtual clock. Callbacks run synchronously inside Advance on
// the caller's goroutine, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	m        *Manual
	id       int
	due      time.Time
	interval time.Duration
	fn       func()
	stopped  bool
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, fn func()) Task {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Task {
	return m.add(d, d, fn)
}

// Pending returns the number of live tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves virtual time forward by d, running every task that becomes
// due. Recurring tasks fire once per elapsed interval.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.interval > 0 {
			next.due = next.due.Add(next.interval)
		} else {
			next.stopped = true
			m.remove(next)
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) add(d, interval time.Duration, fn func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, id: m.seq, due: m.now.Add(d), interval: interval, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (m *Manual) nextDue(limit time.Time) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].id < m.tasks[j].id
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	if m.tasks[0].due.After(limit) {
		return nil
	}
	return m.tasks[0]
}

func (m *Manual) remove(t *manualTask) {
	for i, cur := range m.tasks {
		if cur == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}
