// Package grading scores a set of answers against a test's questions.
// Only single and multiple choice questions are scored automatically;
// text and open answers are left for manual grading.
package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"lms_backend/internal/model"
)

var ErrMalformedAnswer = errors.New("malformed answer")

// Inconsistency describes an answer that was left out of the score.
type Inconsistency struct {
	QuestionID uint   `json:"questionId"`
	Reason     string `json:"reason"`
}

type Result struct {
	Score       int  `json:"score"`
	MaxScore    int  `json:"maxScore"`
	Passed      bool `json:"passed"`
	NeedsManual bool `json:"needsManualGrading"`

	Correct         []uint          `json:"correct"`
	Incorrect       []uint          `json:"incorrect"`
	Unanswered      []uint          `json:"unanswered"`
	Manual          []uint          `json:"manual"`
	Inconsistencies []Inconsistency `json:"inconsistencies,omitempty"`
}

// Score grades answers against test. Answers for questions that are not part
// of the test are ignored and reported as inconsistencies.
func Score(test model.Test, answers model.Answers) Result {
	var r Result
	known := make(map[uint]bool, len(test.Questions))

	for _, q := range test.Questions {
		known[q.ID] = true

		if !q.Type.AutoScored() {
			r.Manual = append(r.Manual, q.ID)
			continue
		}
		r.MaxScore += q.Points

		raw, ok := answers[q.ID]
		if !ok || isEmpty(raw) {
			r.Unanswered = append(r.Unanswered, q.ID)
			continue
		}

		correct, err := IsCorrect(q, raw)
		if err != nil {
			r.Inconsistencies = append(r.Inconsistencies, Inconsistency{QuestionID: q.ID, Reason: err.Error()})
		}
		if correct {
			r.Score += q.Points
			r.Correct = append(r.Correct, q.ID)
		} else {
			r.Incorrect = append(r.Incorrect, q.ID)
		}
	}

	for id := range answers {
		if !known[id] {
			r.Inconsistencies = append(r.Inconsistencies, Inconsistency{QuestionID: id, Reason: "question not in test"})
		}
	}
	sort.Slice(r.Inconsistencies, func(i, j int) bool {
		return r.Inconsistencies[i].QuestionID < r.Inconsistencies[j].QuestionID
	})

	r.NeedsManual = len(r.Manual) > 0
	r.Passed = r.Score >= test.PassingScore
	return r
}

// IsCorrect compares one answer with the question's correct answer.
// Multiple choice requires the selected set to equal the correct set.
func IsCorrect(q model.Question, answer json.RawMessage) (bool, error) {
	options := decodeOptions(q.Options)

	switch q.Type {
	case model.QuestionSingle:
		want, err := optionKey(json.RawMessage(q.CorrectAnswer), options)
		if err != nil {
			return false, fmt.Errorf("question %d correct answer: %w", q.ID, err)
		}
		got, err := optionKey(answer, options)
		if err != nil {
			return false, err
		}
		return got == want, nil

	case model.QuestionMultiple:
		want, err := optionSet(json.RawMessage(q.CorrectAnswer), options)
		if err != nil {
			return false, fmt.Errorf("question %d correct answer: %w", q.ID, err)
		}
		got, err := optionSet(answer, options)
		if err != nil {
			return false, err
		}
		if len(got) != len(want) {
			return false, nil
		}
		for k := range want {
			if !got[k] {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}

func decodeOptions(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil
	}
	return opts
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// optionKey normalises a choice to its option index; option text is mapped
// to its index when it matches one of the options.
func optionKey(raw json.RawMessage, options []string) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", ErrMalformedAnswer
	}

	switch val := v.(type) {
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return "", ErrMalformedAnswer
		}
		return strconv.FormatInt(i, 10), nil
	case string:
		for i, o := range options {
			if o == val {
				return strconv.Itoa(i), nil
			}
		}
		return "text:" + val, nil
	}
	return "", ErrMalformedAnswer
}

func optionSet(raw json.RawMessage, options []string) (map[string]bool, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrMalformedAnswer
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		k, err := optionKey(it, options)
		if err != nil {
			return nil, err
		}
		set[k] = true
	}
	return set, nil
}
