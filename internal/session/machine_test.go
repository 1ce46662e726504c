package session

import (
	"errors"
	"testing"

	"lms_backend/internal/countdown"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeState(t *testing.T) State {
	t.Helper()
	assignment, attempt := fixture(10, 1)
	cs := countdown.Compute(600)
	s := Reduce(State{Status: StatusIdle}, InitStarted{AssignmentID: assignment.ID})
	s = Reduce(s, InitSucceeded{Assignment: assignment, Attempt: attempt, Answers: model.Answers{}, Remaining: &cs})
	require.Equal(t, StatusActive, s.Status)
	return s
}

func TestReduce_InitLifecycle(t *testing.T) {
	s := Reduce(State{Status: StatusIdle}, InitStarted{AssignmentID: 7})
	assert.Equal(t, StatusInitializing, s.Status)
	assert.Equal(t, uint(7), s.AssignmentID)

	// a second start while initializing is ignored
	assert.Equal(t, s, Reduce(s, InitStarted{AssignmentID: 8}))

	failed := Reduce(s, InitFailed{Err: errors.New("boom")})
	assert.Equal(t, StatusFailed, failed.Status)
	assert.EqualError(t, failed.Err, "boom")

	// failed sessions may be retried
	assert.Equal(t, StatusInitializing, Reduce(failed, InitStarted{AssignmentID: 7}).Status)
}

func TestReduce_InitSucceededRestoresPosition(t *testing.T) {
	assignment, attempt := fixture(0, 1)
	attempt.CurrentPage = 9

	s := Reduce(State{Status: StatusInitializing}, InitSucceeded{Assignment: assignment, Attempt: attempt})
	assert.Equal(t, StatusActive, s.Status)
	assert.True(t, s.IsSessionActive)
	assert.False(t, s.Timed)
	assert.Equal(t, 2, s.CurrentQuestionIndex)
	assert.Equal(t, 3, s.QuestionsCount())
}

func TestReduce_AnswerDoesNotMutateInput(t *testing.T) {
	s := activeState(t)
	next := Reduce(s, AnswerSet{QuestionID: 1, Value: raw(`0`)})

	assert.Empty(t, s.Answers)
	assert.JSONEq(t, `0`, string(next.Answers[1]))
}

func TestReduce_NavigateClamps(t *testing.T) {
	s := activeState(t)

	assert.Equal(t, 0, Reduce(s, Navigated{Index: -3}).CurrentQuestionIndex)
	assert.Equal(t, 2, Reduce(s, Navigated{Index: 99}).CurrentQuestionIndex)
	assert.Equal(t, 1, Reduce(s, Navigated{Index: 1}).CurrentQuestionIndex)

	q, ok := Reduce(s, Navigated{Index: 1}).CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, uint(2), q.ID)
}

func TestReduce_TerminalStatesRejectInput(t *testing.T) {
	s := activeState(t)

	expired := Reduce(s, TimerExpired{})
	assert.Equal(t, StatusExpired, expired.Status)
	assert.False(t, expired.IsSessionActive)
	assert.Zero(t, expired.TimeRemainingSeconds)
	assert.True(t, expired.Countdown.IsOverdue)

	for _, e := range []Event{
		AnswerSet{QuestionID: 1, Value: raw(`0`)},
		Navigated{Index: 2},
		Ticked{Countdown: countdown.Compute(30)},
		Finished{},
		Interrupted{},
	} {
		assert.Equal(t, expired, Reduce(expired, e), "%T", e)
	}
}

func TestReduce_FinishedCarriesResult(t *testing.T) {
	s := activeState(t)
	score := 2
	done := Reduce(s, Finished{
		Attempt: &model.TestAttempt{Status: model.AttemptCompleted, Score: &score},
		Result:  grading.Result{Score: 2, MaxScore: 3, Passed: true},
	})

	assert.Equal(t, StatusFinished, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, 2, done.Result.Score)
	assert.Equal(t, model.AttemptCompleted, done.Attempt.Status)
	assert.True(t, done.Status.Terminal())
}

func TestReduce_ErrorsDoNotChangeStatus(t *testing.T) {
	s := activeState(t)
	withErr := Reduce(s, ErrorRaised{Err: errors.New("offline")})

	assert.Equal(t, StatusActive, withErr.Status)
	assert.Error(t, withErr.Err)
	assert.NoError(t, Reduce(withErr, ErrorCleared{}).Err)
}

func TestReduce_TickUpdatesRemaining(t *testing.T) {
	s := activeState(t)
	next := Reduce(s, Ticked{Countdown: countdown.Compute(42)})

	assert.Equal(t, int64(42), next.TimeRemainingSeconds)
	assert.Equal(t, "0m 42s", next.Countdown.FormattedTime)
}
