package model

import "gorm.io/datatypes"

type ChapterType string

const (
	ChapterVideo    ChapterType = "video"
	ChapterSlide    ChapterType = "slide"
	ChapterQuiz     ChapterType = "quiz"
	ChapterDocument ChapterType = "document"
)

type ChapterStatus string

const (
	ChapterLocked    ChapterStatus = "locked"
	ChapterUnlocked  ChapterStatus = "unlocked"
	ChapterCompleted ChapterStatus = "completed"
)

// swagger:model Chapter
type Chapter struct {
	BaseModel

	CourseID uint           `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string         `gorm:"size:255" json:"title"`
	Type     ChapterType    `gorm:"size:20" json:"type"`
	Order    int            `gorm:"default:0" json:"order"`
	Content  datatypes.JSON `gorm:"type:json" json:"content"`
}

func (Chapter) TableName() string {
	return "course_chapters"
}

// PlayerChapter 课程播放器使用的章节视图
type PlayerChapter struct {
	Chapter
	Status ChapterStatus `json:"status"`
}

// ChapterProgress 每个 (assignment, chapter, user) 一行
type ChapterProgress struct {
	BaseModel
	AssignmentID uint           `gorm:"uniqueIndex:idx_progress_item;type:bigint unsigned" json:"assignmentId"`
	ChapterID    uint           `gorm:"uniqueIndex:idx_progress_item;type:bigint unsigned" json:"chapterId"`
	UserID       uint           `gorm:"uniqueIndex:idx_progress_item;type:bigint unsigned" json:"userId"`
	IsCompleted  bool           `gorm:"default:false" json:"isCompleted"`
	Answers      datatypes.JSON `gorm:"type:json" json:"answers"`
}

func (ChapterProgress) TableName() string {
	return "chapter_progress"
}
