package controller

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressAPI interface {
	Get(ctx context.Context, assignmentID, userID uint, role model.UserRole) (*model.Progress, error)
	Chapters(ctx context.Context, assignmentID, userID uint, role model.UserRole) ([]model.PlayerChapter, error)
}

type ProgressController struct {
	Progress ProgressAPI
}

func NewProgressController(progress ProgressAPI) *ProgressController {
	return &ProgressController{Progress: progress}
}

// @Summary 章节进度
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/assignments/{id}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	p, err := c.Progress.Get(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 章节列表及解锁状态
// @Description 前一章节全部完成后才解锁，第一章始终可用
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=[]model.PlayerChapter}
// @Router /api/assignments/{id}/chapters [get]
func (c *ProgressController) GetChapters(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	chapters, err := c.Progress.Chapters(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, chapters)
}
