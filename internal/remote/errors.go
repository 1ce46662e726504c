package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("remote: not found")
	ErrForbidden         = errors.New("remote: forbidden")
	ErrUnauthorized      = errors.New("remote: unauthorized")
	ErrAttemptsExhausted = errors.New("remote: attempts exhausted")
	ErrAttemptClosed     = errors.New("remote: attempt closed")
)

// StatusError carries a non-2xx response that did not map to a sentinel.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %d %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func errorForStatus(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusConflict:
		sentinel = ErrAttemptsExhausted
	case http.StatusGone:
		sentinel = ErrAttemptClosed
	default:
		return &StatusError{StatusCode: status, Message: message}
	}
	if message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

// Retryable reports whether err is worth another try: transport failures and
// 5xx/429 responses are, contract errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, permanent := range []error{ErrNotFound, ErrForbidden, ErrUnauthorized, ErrAttemptsExhausted, ErrAttemptClosed} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
