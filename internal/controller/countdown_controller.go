package controller

import (
	"context"
	"net/http"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/countdown"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CountdownMessage 推送给客户端的倒计时帧；截止后 type 为 expired 且连接随即关闭
type CountdownMessage struct {
	Type string          `json:"type"`
	Data countdown.State `json:"data"`
}

type DeadlineSource interface {
	Deadline(ctx context.Context, attemptID, userID uint) (time.Time, error)
}

type CountdownController struct {
	Attempts DeadlineSource
	Clock    clock.Scheduler
}

func NewCountdownController(attempts DeadlineSource, sched clock.Scheduler) *CountdownController {
	return &CountdownController{Attempts: attempts, Clock: sched}
}

// @Summary 尝试倒计时推送
// @Description WebSocket，每秒推送一次剩余时间，截止时推送 expired 后关闭。浏览器可用 ?token= 传递 JWT
// @Tags 测试
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 101
// @Failure 400 {object} util.Response "不限时"
// @Router /api/attempts/{id}/countdown/ws [get]
func (c *CountdownController) Stream(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	deadline, err := c.Attempts.Deadline(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if deadline.IsZero() {
		util.BadRequest(ctx, "attempt is not timed")
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.L().Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("attempt_id", id))
		return
	}
	monitoring.CountdownStreams.Inc()
	defer monitoring.CountdownStreams.Dec()

	c.serve(conn, deadline)
}

func (c *CountdownController) serve(conn *websocket.Conn, deadline time.Time) {
	defer conn.Close()

	// 只保留最新一帧，慢客户端不会阻塞计时器
	states := make(chan countdown.State, 1)
	timer := countdown.NewTimer(c.Clock, deadline, func(st countdown.State) {
		select {
		case <-states:
		default:
		}
		states <- st
	})
	defer timer.Stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	st := timer.Start()
	for {
		if err := c.write(conn, st); err != nil {
			return
		}
		if st.IsOverdue {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "expired"))
			return
		}

		select {
		case st = <-states:
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			st = timer.State()
		case <-closed:
			return
		}
	}
}

func (c *CountdownController) write(conn *websocket.Conn, st countdown.State) error {
	msg := CountdownMessage{Type: "countdown", Data: st}
	if st.IsOverdue {
		msg.Type = "expired"
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
