package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/countdown"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type countdownFrame struct {
	Type string          `json:"type"`
	Data countdown.State `json:"data"`
}

var countdownCmd = &cobra.Command{
	Use:   "countdown <attempt-id>",
	Short: "Follow the server-side countdown of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attemptID, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.log.Sync()

		target, err := countdownURL(e.cfg.Remote.BaseURL, attemptID)
		if err != nil {
			return err
		}
		header := http.Header{}
		if e.cfg.Remote.Token != "" {
			header.Set("Authorization", "Bearer "+e.cfg.Remote.Token)
		}

		conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), target, header)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("countdown stream refused: %s", resp.Status)
			}
			return err
		}
		defer conn.Close()

		quiz, _ := cmd.Flags().GetBool("quiz")
		out := &lineWriter{w: cmd.OutOrStdout()}
		var qt *countdown.QuizTimer
		defer func() {
			if qt != nil {
				qt.Stop()
			}
		}()

		for {
			var f countdownFrame
			if err := conn.ReadJSON(&f); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					out.newline()
					return nil
				}
				e.log.Debug("Countdown stream closed", zap.Error(err))
				return err
			}
			switch {
			case f.Type == "expired":
				out.printf("\r%-24s", f.Data.FormattedTime)
				out.newline()
				return nil
			case quiz && qt == nil:
				// 首帧确定截止时间，之后按分钟在本地刷新
				remaining := time.Duration(f.Data.TotalSecondsRemaining) * time.Second
				qt = followQuiz(clock.Real{}, remaining, out)
			case !quiz:
				out.printf("\r%-24s", f.Data.FormattedTime)
			}
		}
	},
}

func init() {
	countdownCmd.Flags().Bool("quiz", false, "Show the per-minute quiz countdown instead of the per-second one")
}

// followQuiz starts a per-minute quiz countdown and prints every state it reaches.
func followQuiz(sched clock.Scheduler, remaining time.Duration, out *lineWriter) *countdown.QuizTimer {
	qt := countdown.NewQuizTimer(sched, sched.Now().Add(remaining), func(q countdown.QuizState) {
		out.printf("\r%-24s", formatQuiz(q))
	})
	out.printf("\r%-24s", formatQuiz(qt.Start()))
	return qt
}

func formatQuiz(q countdown.QuizState) string {
	switch {
	case q.IsExpired:
		return "time is up"
	case q.Days > 0:
		return fmt.Sprintf("%dd %dh %dm left", q.Days, q.Hours, q.Minutes)
	case q.Hours > 0:
		return fmt.Sprintf("%dh %dm left", q.Hours, q.Minutes)
	default:
		return fmt.Sprintf("%dm left", q.Minutes)
	}
}

// lineWriter serializes output from the stream loop and timer callbacks.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func (l *lineWriter) newline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w)
}

// countdownURL maps http(s)://host/api to ws(s)://host/api/attempts/{id}/countdown/ws.
func countdownURL(base string, attemptID uint) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("%s/attempts/%d/countdown/ws", u.Path, attemptID)
	return u.String(), nil
}
