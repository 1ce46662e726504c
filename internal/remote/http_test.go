package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": status, "message": message, "data": data})
}

func TestHTTPClient_SyncAttempt(t *testing.T) {
	var got model.SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/attempts/42/sync", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeEnvelope(w, http.StatusOK, "success", model.SyncResult{Applied: true, SyncRevision: got.Revision})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/api/", "tok")
	res, err := c.SyncAttempt(context.Background(), 42, model.SyncRequest{
		Revision: 3,
		Answers:  model.Answers{5: json.RawMessage(`[0,2]`)},
	})

	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(3), res.SyncRevision)
	assert.JSONEq(t, `[0,2]`, string(got.Answers[5]))
}

func TestHTTPClient_GetAssignment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Idempotency-Key"))
		writeEnvelope(w, http.StatusOK, "success", model.TestAssignment{
			ID:          7,
			MaxAttempts: 2,
			Test:        model.Test{Title: "Unit 1", DurationMinutes: 20, QuestionsCount: 0},
		})
	}))
	defer srv.Close()

	a, err := NewHTTPClient(srv.URL, "").GetAssignment(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), a.ID)
	assert.Equal(t, 20, a.Test.DurationMinutes)
}

func TestHTTPClient_MapsErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusConflict, ErrAttemptsExhausted},
		{http.StatusGone, ErrAttemptClosed},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, "nope", nil)
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, "").StartAttempt(context.Background(), 1)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, Retryable(err))
		})
	}
}

func TestHTTPClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusServiceUnavailable, "down", nil)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "").CompleteAttempt(context.Background(), 1, model.CompleteRequest{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.True(t, Retryable(err))
}

func TestHTTPClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, "").GetProgress(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestHTTPClient_GetChapters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assignments/3/chapters", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "success", []model.PlayerChapter{
			{Chapter: model.Chapter{BaseModel: model.BaseModel{ID: 1}, Order: 1}, Status: model.ChapterUnlocked},
		})
	}))
	defer srv.Close()

	chapters, err := NewHTTPClient(srv.URL, "").GetChapters(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, model.ChapterUnlocked, chapters[0].Status)
}
