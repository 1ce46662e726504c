package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lms_backend/internal/clock"
	"lms_backend/internal/countdown"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const assignmentCacheKeyPrefix = "lms:assignment:"

type AssignmentStore interface {
	FindByID(id uint) (*model.Assignment, error)
}

type AssignmentService struct {
	Repo  AssignmentStore
	Redis *redis.Client
	Clock clock.Scheduler

	cacheTTL atomic.Int64
}

func NewAssignmentService(repo AssignmentStore, rdb *redis.Client, sched clock.Scheduler, cacheTTL time.Duration) *AssignmentService {
	s := &AssignmentService{Repo: repo, Redis: rdb, Clock: sched}
	s.SetCacheTTL(cacheTTL)
	return s
}

// SetCacheTTL 配置热更新时调用；<=0 关闭缓存
func (s *AssignmentService) SetCacheTTL(d time.Duration) {
	s.cacheTTL.Store(int64(d))
}

// Get 返回分配，仅本人或教师/管理员可见
func (s *AssignmentService) Get(ctx context.Context, id, userID uint, role model.UserRole) (*model.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID && !role.CanReview() {
		return nil, util.ErrPermissionDenied
	}
	return a, nil
}

// DeadlineInfo 是截止时间倒计时视图，没有截止时间时两个字段都为空
type DeadlineInfo struct {
	Deadline  *time.Time       `json:"deadline"`
	Countdown *countdown.State `json:"countdown"`
}

func (s *AssignmentService) Deadline(ctx context.Context, id, userID uint, role model.UserRole) (*DeadlineInfo, error) {
	a, err := s.Get(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}
	if a.DeadlineDate == nil {
		return &DeadlineInfo{}, nil
	}
	st := countdown.Compute(countdown.Remaining(*a.DeadlineDate, s.Clock.Now()))
	return &DeadlineInfo{Deadline: a.DeadlineDate, Countdown: &st}, nil
}

// load 先查 Redis，未命中再查库并回填
func (s *AssignmentService) load(ctx context.Context, id uint) (*model.Assignment, error) {
	key := fmt.Sprintf("%s%d", assignmentCacheKeyPrefix, id)
	ttl := time.Duration(s.cacheTTL.Load())

	if s.Redis != nil && ttl > 0 {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var a model.Assignment
			if jerr := json.Unmarshal([]byte(val), &a); jerr == nil {
				return &a, nil
			}
		} else if err != redis.Nil {
			logger.L().Warn("Assignment cache read failed", zap.Uint("assignment_id", id), zap.Error(err))
		}
	}

	a, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}

	if s.Redis != nil && ttl > 0 {
		if buf, err := json.Marshal(a); err == nil {
			if err := s.Redis.Set(ctx, key, buf, ttl).Err(); err != nil {
				logger.L().Warn("Assignment cache write failed", zap.Uint("assignment_id", id), zap.Error(err))
			}
		}
	}
	return a, nil
}
