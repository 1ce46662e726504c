package main

import (
	"encoding/json"
	"testing"

	"lms_backend/internal/config"
	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownURL(t *testing.T) {
	u, err := countdownURL("https://lms.example.com/api/", 42)
	require.NoError(t, err)
	assert.Equal(t, "wss://lms.example.com/api/attempts/42/countdown/ws", u)

	u, err = countdownURL("http://localhost:8080/api", 7)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/attempts/7/countdown/ws", u)
}

func TestParseAnswer(t *testing.T) {
	raw, err := parseAnswer(model.Question{Type: model.QuestionSingle}, "2")
	require.NoError(t, err)
	assert.JSONEq(t, `2`, string(raw))

	raw, err = parseAnswer(model.Question{Type: model.QuestionMultiple}, "0, 2")
	require.NoError(t, err)
	assert.JSONEq(t, `[0,2]`, string(raw))

	raw, err = parseAnswer(model.Question{Type: model.QuestionOpen}, "because")
	require.NoError(t, err)
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "because", s)

	_, err = parseAnswer(model.Question{Type: model.QuestionSingle}, "b")
	assert.Error(t, err)
}

func TestSyncConfigFallsBackToDefaults(t *testing.T) {
	sc := syncConfig(config.SessionConfig{SyncDebounceMs: 500})
	assert.Equal(t, int64(500), sc.Debounce.Milliseconds())
	assert.Equal(t, 3, sc.MaxAttempts)
	assert.Equal(t, 2.0, sc.Multiplier)
}

func TestParseID(t *testing.T) {
	id, err := parseID("15")
	require.NoError(t, err)
	assert.Equal(t, uint(15), id)

	_, err = parseID("0")
	assert.Error(t, err)
	_, err = parseID("x")
	assert.Error(t, err)
}
