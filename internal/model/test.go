package model

import "gorm.io/datatypes"

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
	QuestionOpen     QuestionType = "open"
)

// AutoScored reports whether answers of this type are graded without a teacher.
func (t QuestionType) AutoScored() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

// swagger:model Test
type Test struct {
	BaseModel

	CourseID        uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	PassingScore    int        `gorm:"default:0" json:"passingScore"`
	DurationMinutes int        `gorm:"default:0" json:"durationMinutes"`
	QuestionsCount  int        `gorm:"-" json:"questionsCount"`
	Questions       []Question `gorm:"foreignKey:TestID" json:"questions"`
}

func (Test) TableName() string {
	return "tests"
}

// swagger:model Question
type Question struct {
	BaseModel

	TestID uint         `gorm:"index;type:bigint unsigned" json:"testId"`
	Text   string       `gorm:"type:text" json:"text"`
	Type   QuestionType `gorm:"size:20;default:'single'" json:"type"`
	// Options 选项文本数组（JSON array）
	Options datatypes.JSON `gorm:"type:json" json:"options"`
	// CorrectAnswer: single 为选项下标，multiple 为下标数组，text/open 可为空
	CorrectAnswer datatypes.JSON `gorm:"type:json" json:"correctAnswer"`
	Points        int            `gorm:"default:1" json:"points"`
	Order         int            `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "test_questions"
}
