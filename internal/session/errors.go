package session

import (
	"errors"
	"fmt"

	"lms_backend/internal/remote"
)

var (
	// ErrNotAccepting is returned for input while the session is not active.
	ErrNotAccepting = errors.New("session: not accepting input")
	// ErrBusy is returned by Init while a session is initializing or active.
	ErrBusy = errors.New("session: already running")
	// ErrStaleRevision means the server kept a newer revision than every one sent.
	ErrStaleRevision = errors.New("session: sync revision behind server")
)

type InitReason string

const (
	ReasonNotFound          InitReason = "not_found"
	ReasonForbidden         InitReason = "forbidden"
	ReasonAttemptsExhausted InitReason = "attempts_exhausted"
	ReasonClosed            InitReason = "closed"
	ReasonUnavailable       InitReason = "unavailable"
)

// InitError is fatal to the session; a fresh Init call is required.
type InitError struct {
	AssignmentID uint
	Reason       InitReason
	Err          error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("session init for assignment %d failed (%s): %v", e.AssignmentID, e.Reason, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

func newInitError(assignmentID uint, err error) *InitError {
	reason := ReasonUnavailable
	switch {
	case errors.Is(err, remote.ErrNotFound):
		reason = ReasonNotFound
	case errors.Is(err, remote.ErrForbidden), errors.Is(err, remote.ErrUnauthorized):
		reason = ReasonForbidden
	case errors.Is(err, remote.ErrAttemptsExhausted):
		reason = ReasonAttemptsExhausted
	case errors.Is(err, remote.ErrAttemptClosed):
		reason = ReasonClosed
	}
	return &InitError{AssignmentID: assignmentID, Reason: reason, Err: err}
}

// SyncError is a failed flush round. It never ends the session; the listed
// questions stay pending for the next trigger.
type SyncError struct {
	AttemptID uint
	Pending   []uint
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync of attempt %d failed, %d answers pending: %v", e.AttemptID, len(e.Pending), e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
