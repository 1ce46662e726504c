package countdown

import (
	"testing"
	"time"

	"lms_backend/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTimer_TicksEverySecond(t *testing.T) {
	m := clock.NewManual(start)
	var ticks []int64
	timer := NewTimerFromRemaining(m, 5*time.Second, func(s State) {
		ticks = append(ticks, s.TotalSecondsRemaining)
	})

	initial := timer.Start()
	assert.Equal(t, int64(5), initial.TotalSecondsRemaining)

	m.Advance(3 * time.Second)
	assert.Equal(t, []int64{4, 3, 2}, ticks)
	assert.True(t, timer.Running())
}

func TestTimer_FreezesAndSelfCancelsWhenOverdue(t *testing.T) {
	m := clock.NewManual(start)
	var states []State
	timer := NewTimerFromRemaining(m, 2*time.Second, func(s State) {
		states = append(states, s)
	})
	timer.Start()

	m.Advance(10 * time.Second)

	require.Len(t, states, 2)
	assert.False(t, states[0].IsOverdue)
	assert.True(t, states[1].IsOverdue)
	assert.Equal(t, 0, states[1].Seconds)
	assert.False(t, timer.Running())
	assert.Equal(t, 0, m.Pending())

	frozen := timer.State()
	m.Advance(time.Hour)
	assert.Equal(t, frozen, timer.State())
	assert.Len(t, states, 2)
}

func TestTimer_AlreadyOverdueNeverSchedules(t *testing.T) {
	m := clock.NewManual(start)
	called := false
	timer := NewTimer(m, start.Add(-time.Minute), func(State) { called = true })

	s := timer.Start()
	assert.True(t, s.IsOverdue)
	assert.False(t, timer.Running())
	assert.Equal(t, 0, m.Pending())

	m.Advance(time.Minute)
	assert.False(t, called)
}

func TestTimer_StopCancelsTicks(t *testing.T) {
	m := clock.NewManual(start)
	calls := 0
	timer := NewTimerFromRemaining(m, time.Minute, func(State) { calls++ })
	timer.Start()

	m.Advance(2 * time.Second)
	timer.Stop()
	m.Advance(time.Minute)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, m.Pending())
}

func TestQuizTimer_TicksPerMinute(t *testing.T) {
	m := clock.NewManual(start)
	var got []QuizState
	qt := NewQuizTimer(m, start.Add(2*time.Minute+30*time.Second), func(s QuizState) {
		got = append(got, s)
	})

	assert.Equal(t, QuizState{Minutes: 2}, qt.Start())

	m.Advance(59 * time.Second)
	assert.Empty(t, got)

	m.Advance(time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, QuizState{Minutes: 1}, got[0])

	m.Advance(2 * time.Minute)
	require.Len(t, got, 3)
	assert.True(t, got[2].IsExpired)
	assert.False(t, qt.Running())
}
