package repository

import (
	"time"

	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var openStatuses = []model.AttemptStatus{model.AttemptStarted, model.AttemptInProgress}

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.TestAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.TestAttempt) error {
	return r.DB.Omit(clause.Associations).Save(attempt).Error
}

// FindByID 返回尝试及展开后的答案
func (r *AttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var a model.TestAttempt
	if err := r.DB.Preload("AnswerRows").First(&a, id).Error; err != nil {
		return nil, err
	}
	a.FillAnswers()
	return &a, nil
}

// FindLatestResumable 最近一次可继续的尝试，没有时返回 gorm.ErrRecordNotFound
func (r *AttemptRepository) FindLatestResumable(assignmentID, userID uint) (*model.TestAttempt, error) {
	var a model.TestAttempt
	err := r.DB.Preload("AnswerRows").
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Where("status IN ?", append(openStatuses, model.AttemptInterrupted)).
		Order("attempt_number DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	a.FillAnswers()
	return &a, nil
}

func (r *AttemptRepository) CountByAssignmentAndUser(assignmentID, userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestAttempt{}).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) ListByAssignment(assignmentID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.DB.Where("assignment_id = ?", assignmentID).
		Order("user_id ASC, attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// ApplySync 在一个事务里推进 sync_revision 并 upsert 答案。
// 版本号不大于已应用版本、或尝试已关闭时不做任何修改，返回 false。
func (r *AttemptRepository) ApplySync(attemptID uint, req model.SyncRequest) (bool, error) {
	applied := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TestAttempt{}).
			Where("id = ? AND sync_revision < ? AND status IN ?", attemptID, req.Revision, openStatuses).
			Updates(map[string]interface{}{
				"sync_revision":      req.Revision,
				"current_page":       req.CurrentPage,
				"time_spent_seconds": req.TimeSpentSeconds,
				"status":             model.AttemptInProgress,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return upsertAnswers(tx, attemptID, req.Answers)
	})
	return applied, err
}

// SaveAnswers 覆盖式写入答案（完成时使用）
func (r *AttemptRepository) SaveAnswers(attemptID uint, answers model.Answers) error {
	return upsertAnswers(r.DB, attemptID, answers)
}

// UpdateStatus 仅在当前状态属于 from 时切换到 to
func (r *AttemptRepository) UpdateStatus(attemptID uint, from []model.AttemptStatus, to model.AttemptStatus) (bool, error) {
	res := r.DB.Model(&model.TestAttempt{}).
		Where("id = ? AND status IN ?", attemptID, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// FindOverdue 返回截止时间早于 cutoff 且仍未关闭的尝试；截止时间取开始时间加时长
// 与作业截止日期中较早者
func (r *AttemptRepository) FindOverdue(cutoff time.Time, limit int) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := overdueQuery(r.DB, cutoff, limit).Find(&attempts).Error
	return attempts, err
}

func overdueQuery(db *gorm.DB, cutoff time.Time, limit int) *gorm.DB {
	return db.Model(&model.TestAttempt{}).
		Joins("JOIN test_assignments ON test_assignments.id = test_attempts.assignment_id").
		Joins("JOIN tests ON tests.id = test_assignments.test_id").
		Where("test_attempts.status IN ?", append(openStatuses, model.AttemptInterrupted)).
		Where("(tests.duration_minutes > 0 AND DATE_ADD(test_attempts.started_at, INTERVAL tests.duration_minutes MINUTE) < ?)"+
			" OR (test_assignments.deadline_date IS NOT NULL AND test_assignments.deadline_date < ?)", cutoff, cutoff).
		Limit(limit)
}

func upsertAnswers(db *gorm.DB, attemptID uint, answers model.Answers) error {
	if len(answers) == 0 {
		return nil
	}
	rows := make([]model.AttemptAnswer, 0, len(answers))
	for qid, v := range answers {
		rows = append(rows, model.AttemptAnswer{AttemptID: attemptID, QuestionID: qid, Answer: []byte(v)})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(&rows).Error
}
