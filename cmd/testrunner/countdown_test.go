package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/countdown"

	"github.com/stretchr/testify/assert"
)

func TestFollowQuiz_TicksPerMinuteUntilExpired(t *testing.T) {
	m := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	var buf bytes.Buffer
	qt := followQuiz(m, 3*time.Minute+30*time.Second, &lineWriter{w: &buf})

	assert.True(t, qt.Running())
	assert.Equal(t, 3, qt.State().Minutes)

	// no redraw inside the first minute
	m.Advance(59 * time.Second)
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"))

	m.Advance(5 * time.Minute)
	frames := strings.Split(strings.TrimPrefix(buf.String(), "\r"), "\r")
	var shown []string
	for _, f := range frames {
		shown = append(shown, strings.TrimSpace(f))
	}
	assert.Equal(t, []string{"3m left", "2m left", "1m left", "0m left", "time is up"}, shown)
	assert.False(t, qt.Running())
	assert.True(t, qt.State().IsExpired)
}

func TestFormatQuiz(t *testing.T) {
	assert.Equal(t, "2d 3h 4m left", formatQuiz(countdown.QuizState{Days: 2, Hours: 3, Minutes: 4}))
	assert.Equal(t, "1h 0m left", formatQuiz(countdown.QuizState{Hours: 1}))
	assert.Equal(t, "7m left", formatQuiz(countdown.QuizState{Minutes: 7}))
	assert.Equal(t, "time is up", formatQuiz(countdown.QuizState{IsExpired: true}))
}
