package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChapterProgressRepository struct {
	DB *gorm.DB
}

func NewChapterProgressRepository(db *gorm.DB) *ChapterProgressRepository {
	return &ChapterProgressRepository{DB: db}
}

func (r *ChapterProgressRepository) ListChapters(courseID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("course_id = ?", courseID).
		Order("`order` ASC, id ASC").
		Find(&chapters).Error
	return chapters, err
}

func (r *ChapterProgressRepository) ListProgress(assignmentID, userID uint) ([]model.ChapterProgress, error) {
	var items []model.ChapterProgress
	err := r.DB.Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("chapter_id ASC").
		Find(&items).Error
	return items, err
}

// Upsert 完成标记只会从 false 变成 true
func (r *ChapterProgressRepository) Upsert(p *model.ChapterProgress) error {
	updates := []string{"updated_at"}
	if p.IsCompleted {
		updates = append(updates, "is_completed")
	}
	if len(p.Answers) > 0 {
		updates = append(updates, "answers")
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "chapter_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(p).Error
}
