package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDeadline struct {
	deadline time.Time
	err      error
}

func (f fixedDeadline) Deadline(ctx context.Context, attemptID, userID uint) (time.Time, error) {
	return f.deadline, f.err
}

func newCountdownServer(t *testing.T, src DeadlineSource, sched clock.Scheduler) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/attempts/:id/countdown/ws", withUser(5, model.Student), NewCountdownController(src, sched).Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCountdownController_StreamsUntilExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := clock.NewManual(start)
	srv := newCountdownServer(t, fixedDeadline{deadline: start.Add(2 * time.Second)}, m)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/attempts/42/countdown/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg CountdownMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "countdown", msg.Type)
	assert.Equal(t, int64(2), msg.Data.TotalSecondsRemaining)

	m.Advance(time.Second)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, int64(1), msg.Data.TotalSecondsRemaining)

	m.Advance(time.Second)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "expired", msg.Type)
	assert.True(t, msg.Data.IsOverdue)
	assert.Equal(t, "Overdue", msg.Data.FormattedTime)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestCountdownController_UntimedAttempt(t *testing.T) {
	srv := newCountdownServer(t, fixedDeadline{}, clock.Real{})

	resp, err := http.Get(srv.URL + "/attempts/42/countdown/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
