package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptStarted     AttemptStatus = "started"
	AttemptInProgress  AttemptStatus = "in_progress"
	AttemptInterrupted AttemptStatus = "interrupted"
	AttemptExpired     AttemptStatus = "expired"
	AttemptCompleted   AttemptStatus = "completed"
	AttemptAbandoned   AttemptStatus = "abandoned"
)

// Open reports whether the attempt still accepts answers.
func (s AttemptStatus) Open() bool {
	return s == AttemptStarted || s == AttemptInProgress
}

// Resumable 表示再次开始时可以继续这次尝试
func (s AttemptStatus) Resumable() bool {
	return s.Open() || s == AttemptInterrupted
}

func (s AttemptStatus) Terminal() bool {
	return s == AttemptExpired || s == AttemptCompleted || s == AttemptAbandoned
}

// Answers 题目ID -> 答案（原始 JSON）
type Answers map[uint]json.RawMessage

// Clone returns a shallow copy; the raw values are never mutated in place.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// swagger:model TestAttempt
type TestAttempt struct {
	BaseModel

	AssignmentID     uint          `gorm:"index:idx_attempt_assignment_user;type:bigint unsigned" json:"assignmentId"`
	UserID           uint          `gorm:"index:idx_attempt_assignment_user;type:bigint unsigned" json:"userId"`
	AttemptNumber    int           `json:"attemptNumber"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	Status           AttemptStatus `gorm:"size:20;index;default:'started'" json:"status"`
	Score            *int          `json:"score,omitempty"`
	MaxScore         int           `json:"maxScore"`
	Passed           bool          `gorm:"default:false" json:"passed"`
	NeedsManual      bool          `gorm:"default:false" json:"needsManualGrading"`
	CurrentPage      int           `json:"currentPage"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	SyncRevision     uint64        `json:"syncRevision"`

	AnswerRows []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"-"`
	Answers    Answers         `gorm:"-" json:"answers"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// FillAnswers 把答案行展开成 map
func (a *TestAttempt) FillAnswers() {
	a.Answers = make(Answers, len(a.AnswerRows))
	for _, row := range a.AnswerRows {
		a.Answers[row.QuestionID] = json.RawMessage(row.Answer)
	}
}

// Deadline is the moment the attempt runs out of time; zero when untimed.
func (a *TestAttempt) Deadline(durationMinutes int) time.Time {
	if durationMinutes <= 0 {
		return time.Time{}
	}
	return a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// AttemptAnswer 每题一行，(attempt_id, question_id) 唯一，同步时 upsert
type AttemptAnswer struct {
	BaseModel
	AttemptID  uint           `gorm:"uniqueIndex:idx_attempt_question;type:bigint unsigned" json:"attemptId"`
	QuestionID uint           `gorm:"uniqueIndex:idx_attempt_question;type:bigint unsigned" json:"questionId"`
	Answer     datatypes.JSON `gorm:"type:json" json:"answer"`
}

func (AttemptAnswer) TableName() string {
	return "test_attempt_answers"
}
