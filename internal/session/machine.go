package session

import (
	"encoding/json"

	"lms_backend/internal/countdown"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
	StatusInterrupted  Status = "interrupted"
	StatusExpired      Status = "expired"
	StatusFinished     Status = "finished"
	StatusFailed       Status = "failed"
)

// Terminal 终态之后只能重新 Init
func (s Status) Terminal() bool {
	switch s {
	case StatusInterrupted, StatusExpired, StatusFinished, StatusFailed:
		return true
	}
	return false
}

// State is the observable snapshot of a test session. Values handed out are
// never mutated afterwards.
type State struct {
	Status               Status
	AssignmentID         uint
	CurrentQuestionIndex int
	Answers              model.Answers
	TimeRemainingSeconds int64
	Timed                bool
	Countdown            countdown.State
	IsSessionActive      bool
	Assignment           *model.TestAssignment
	Attempt              *model.TestAttempt
	Result               *grading.Result
	Err                  error
}

func (s State) QuestionsCount() int {
	if s.Assignment == nil {
		return 0
	}
	return len(s.Assignment.Test.Questions)
}

// CurrentQuestion returns the question under CurrentQuestionIndex.
func (s State) CurrentQuestion() (model.Question, bool) {
	n := s.QuestionsCount()
	if n == 0 || s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= n {
		return model.Question{}, false
	}
	return s.Assignment.Test.Questions[s.CurrentQuestionIndex], true
}

// Event is one input to Reduce.
type Event interface {
	event()
}

type (
	InitStarted struct {
		AssignmentID uint
	}
	InitSucceeded struct {
		Assignment *model.TestAssignment
		Attempt    *model.TestAttempt
		Answers    model.Answers
		// Remaining is nil for untimed attempts.
		Remaining *countdown.State
	}
	InitFailed struct {
		Err error
	}
	AnswerSet struct {
		QuestionID uint
		Value      json.RawMessage
	}
	Navigated struct {
		Index int
	}
	Ticked struct {
		Countdown countdown.State
	}
	TimerExpired struct{}
	Finished     struct {
		Attempt *model.TestAttempt
		Result  grading.Result
	}
	Interrupted struct{}
	ErrorRaised struct {
		Err error
	}
	ErrorCleared struct{}
)

func (InitStarted) event()   {}
func (InitSucceeded) event() {}
func (InitFailed) event()    {}
func (AnswerSet) event()     {}
func (Navigated) event()     {}
func (Ticked) event()        {}
func (TimerExpired) event()  {}
func (Finished) event()      {}
func (Interrupted) event()   {}
func (ErrorRaised) event()   {}
func (ErrorCleared) event()  {}

// Reduce applies e to s. It is pure: s is never modified and events that do
// not apply to the current status return s unchanged.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case InitStarted:
		if s.Status == StatusInitializing || s.Status == StatusActive {
			return s
		}
		return State{Status: StatusInitializing, AssignmentID: ev.AssignmentID}

	case InitSucceeded:
		if s.Status != StatusInitializing {
			return s
		}
		next := State{
			Status:          StatusActive,
			AssignmentID:    s.AssignmentID,
			Assignment:      ev.Assignment,
			Attempt:         ev.Attempt,
			Answers:         ev.Answers.Clone(),
			IsSessionActive: true,
		}
		if ev.Remaining != nil {
			next.Timed = true
			next.Countdown = *ev.Remaining
			next.TimeRemainingSeconds = ev.Remaining.TotalSecondsRemaining
		}
		if ev.Attempt != nil {
			next.CurrentQuestionIndex = clampIndex(ev.Attempt.CurrentPage, next.QuestionsCount())
		}
		return next

	case InitFailed:
		if s.Status != StatusInitializing {
			return s
		}
		s.Status = StatusFailed
		s.Err = ev.Err
		return s

	case AnswerSet:
		if s.Status != StatusActive {
			return s
		}
		answers := s.Answers.Clone()
		answers[ev.QuestionID] = ev.Value
		s.Answers = answers
		return s

	case Navigated:
		if s.Status != StatusActive {
			return s
		}
		s.CurrentQuestionIndex = clampIndex(ev.Index, s.QuestionsCount())
		return s

	case Ticked:
		if s.Status != StatusActive {
			return s
		}
		s.Countdown = ev.Countdown
		s.TimeRemainingSeconds = ev.Countdown.TotalSecondsRemaining
		return s

	case TimerExpired:
		if s.Status != StatusActive {
			return s
		}
		s.Status = StatusExpired
		s.IsSessionActive = false
		s.TimeRemainingSeconds = 0
		s.Countdown = countdown.Compute(0)
		return s

	case Finished:
		if s.Status != StatusActive {
			return s
		}
		result := ev.Result
		s.Status = StatusFinished
		s.IsSessionActive = false
		s.Result = &result
		if ev.Attempt != nil {
			s.Attempt = ev.Attempt
		}
		return s

	case Interrupted:
		if s.Status != StatusActive {
			return s
		}
		s.Status = StatusInterrupted
		s.IsSessionActive = false
		return s

	case ErrorRaised:
		s.Err = ev.Err
		return s

	case ErrorCleared:
		s.Err = nil
		return s
	}
	return s
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
