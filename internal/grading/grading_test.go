package grading

import (
	"encoding/json"
	"testing"

	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(id uint, typ model.QuestionType, correct string, points int) model.Question {
	return model.Question{
		BaseModel:     model.BaseModel{ID: id},
		Type:          typ,
		Options:       []byte(`["red","green","blue","black"]`),
		CorrectAnswer: []byte(correct),
		Points:        points,
	}
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestIsCorrect_MultipleRequiresExactSet(t *testing.T) {
	question := q(1, model.QuestionMultiple, `[1,2]`, 2)

	tests := []struct {
		answer string
		want   bool
	}{
		{`[1,2]`, true},
		{`[2,1]`, true},
		{`["green","blue"]`, true},
		{`[1]`, false},
		{`[1,2,3]`, false},
		{`[]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := IsCorrect(question, raw(tt.answer))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCorrect_SingleAcceptsIndexOrOptionText(t *testing.T) {
	question := q(1, model.QuestionSingle, `2`, 1)

	ok, err := IsCorrect(question, raw(`2`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsCorrect(question, raw(`"blue"`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsCorrect(question, raw(`0`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsCorrect_MalformedAnswer(t *testing.T) {
	_, err := IsCorrect(q(1, model.QuestionMultiple, `[1]`, 1), raw(`{"x":1}`))
	assert.ErrorIs(t, err, ErrMalformedAnswer)

	_, err = IsCorrect(q(1, model.QuestionSingle, `1`, 1), raw(`[1]`))
	assert.ErrorIs(t, err, ErrMalformedAnswer)
}

func TestScore_SumsPointsAndSkipsManual(t *testing.T) {
	test := model.Test{
		PassingScore: 3,
		Questions: []model.Question{
			q(1, model.QuestionSingle, `0`, 1),
			q(2, model.QuestionMultiple, `[1,3]`, 2),
			q(3, model.QuestionSingle, `1`, 4),
			{BaseModel: model.BaseModel{ID: 4}, Type: model.QuestionOpen, Points: 5},
			{BaseModel: model.BaseModel{ID: 5}, Type: model.QuestionText, Points: 5},
		},
	}
	answers := model.Answers{
		1: raw(`0`),
		2: raw(`[3,1]`),
		3: raw(`2`),
		4: raw(`"an essay"`),
	}

	r := Score(test, answers)

	assert.Equal(t, 3, r.Score)
	assert.Equal(t, 7, r.MaxScore)
	assert.True(t, r.Passed)
	assert.True(t, r.NeedsManual)
	assert.Equal(t, []uint{1, 2}, r.Correct)
	assert.Equal(t, []uint{3}, r.Incorrect)
	assert.Equal(t, []uint{4, 5}, r.Manual)
	assert.Empty(t, r.Unanswered)
	assert.Empty(t, r.Inconsistencies)
}

func TestScore_IgnoresAnswersForUnknownQuestions(t *testing.T) {
	test := model.Test{
		PassingScore: 2,
		Questions:    []model.Question{q(1, model.QuestionSingle, `1`, 1)},
	}

	r := Score(test, model.Answers{1: raw(`1`), 99: raw(`1`)})

	assert.Equal(t, 1, r.Score)
	assert.False(t, r.Passed)
	require.Len(t, r.Inconsistencies, 1)
	assert.Equal(t, uint(99), r.Inconsistencies[0].QuestionID)
}

func TestScore_NullAnswerIsUnanswered(t *testing.T) {
	test := model.Test{Questions: []model.Question{q(1, model.QuestionSingle, `1`, 1)}}

	r := Score(test, model.Answers{1: raw(`null`)})

	assert.Equal(t, []uint{1}, r.Unanswered)
	assert.Equal(t, 0, r.Score)
	assert.True(t, r.Passed)
}
