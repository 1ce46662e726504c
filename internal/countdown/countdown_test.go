package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Formatting(t *testing.T) {
	tests := []struct {
		name      string
		remaining int64
		want      string
	}{
		{"days and hours", 3*86400 + 5*3600 + 59, "3d 5h"},
		{"hours and minutes", 2*3600 + 15*60 + 30, "2h 15m"},
		{"minutes and seconds", 4*60 + 7, "4m 7s"},
		{"seconds only", 42, "0m 42s"},
		{"exactly one day", 86400, "1d 0h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.remaining).FormattedTime)
		})
	}
}

func TestCompute_Components(t *testing.T) {
	s := Compute(1*86400 + 2*3600 + 3*60 + 4)
	assert.Equal(t, 1, s.Days)
	assert.Equal(t, 2, s.Hours)
	assert.Equal(t, 3, s.Minutes)
	assert.Equal(t, 4, s.Seconds)
	assert.Equal(t, int64(93784), s.TotalSecondsRemaining)
	assert.False(t, s.IsOverdue)
}

func TestCompute_UrgentBoundary(t *testing.T) {
	assert.False(t, Compute(172801).IsUrgent)
	assert.False(t, Compute(172800).IsUrgent)
	assert.True(t, Compute(172799).IsUrgent)
	assert.True(t, Compute(1).IsUrgent)
}

func TestCompute_Overdue(t *testing.T) {
	for _, r := range []int64{0, -1, -86400} {
		s := Compute(r)
		assert.Equal(t, State{IsOverdue: true, FormattedTime: OverdueText}, s)
		assert.False(t, s.IsUrgent)
	}
}

func TestRemaining_RoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(1), Remaining(now.Add(500*time.Millisecond), now))
	assert.Equal(t, int64(0), Remaining(now, now))
	assert.Equal(t, int64(-1), Remaining(now.Add(-time.Second), now))
}

func TestQuizProjection(t *testing.T) {
	q := Compute(2*86400 + 3*3600 + 4*60 + 5).Quiz()
	assert.Equal(t, QuizState{Days: 2, Hours: 3, Minutes: 4}, q)
	assert.True(t, Compute(0).Quiz().IsExpired)
}
