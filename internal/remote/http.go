package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope mirrors util.Response on the server.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.http = c }
}

func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTPClient) { h.log = l }
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) { h.http.Timeout = d }
}

// NewHTTPClient talks to the API rooted at baseURL (e.g. http://host/api)
// using token as the bearer credential.
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) GetAssignment(ctx context.Context, assignmentID uint) (*model.TestAssignment, error) {
	var out model.TestAssignment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assignments/%d", assignmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) StartAttempt(ctx context.Context, assignmentID uint) (*model.TestAttempt, error) {
	var out model.TestAttempt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assignments/%d/attempts", assignmentID), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SyncAttempt(ctx context.Context, attemptID uint, req model.SyncRequest) (*model.SyncResult, error) {
	var out model.SyncResult
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/attempts/%d/sync", attemptID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CompleteAttempt(ctx context.Context, attemptID uint, req model.CompleteRequest) (*model.TestAttempt, error) {
	var out model.TestAttempt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%d/complete", attemptID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateAttemptStatus(ctx context.Context, attemptID uint, status model.AttemptStatus) (*model.TestAttempt, error) {
	var out model.TestAttempt
	body := model.StatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%d/status", attemptID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetProgress(ctx context.Context, assignmentID uint) (*model.Progress, error) {
	var out model.Progress
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assignments/%d/progress", assignmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetChapters(ctx context.Context, assignmentID uint) ([]model.PlayerChapter, error) {
	var out []model.PlayerChapter
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assignments/%d/chapters", assignmentID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) (err error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	req, span := tracing.StartClientSpan(ctx, req, method+" "+path)
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("remote request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	c.log.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var env envelope
	if len(raw) > 0 {
		if jerr := json.Unmarshal(raw, &env); jerr != nil && resp.StatusCode < 300 {
			return fmt.Errorf("remote: decode %s %s: %w", method, path, jerr)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorForStatus(resp.StatusCode, env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}
