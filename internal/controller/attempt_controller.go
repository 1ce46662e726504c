package controller

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptAPI interface {
	Start(ctx context.Context, assignmentID, userID uint, role model.UserRole) (*model.TestAttempt, error)
	Sync(ctx context.Context, attemptID, userID uint, req model.SyncRequest) (*model.SyncResult, error)
	Complete(ctx context.Context, attemptID, userID uint, req model.CompleteRequest) (*model.TestAttempt, error)
	UpdateStatus(ctx context.Context, attemptID, userID uint, status model.AttemptStatus) (*model.TestAttempt, error)
	List(ctx context.Context, assignmentID, userID uint, role model.UserRole) ([]model.TestAttempt, error)
}

type AttemptController struct {
	Attempts AttemptAPI
}

func NewAttemptController(attempts AttemptAPI) *AttemptController {
	return &AttemptController{Attempts: attempts}
}

// @Summary 开始或继续测试
// @Description 存在未结束且未超时的尝试时直接返回，否则在次数允许时新建
// @Tags 测试
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=model.TestAttempt}
// @Failure 409 {object} util.Response "次数用尽"
// @Failure 410 {object} util.Response "已过截止时间"
// @Router /api/assignments/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.Attempts.Start(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 同步答案
// @Description 按 (attempt, question) upsert；revision 不大于已应用版本时 applied=false
// @Tags 测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Param body body model.SyncRequest true "待同步答案"
// @Success 200 {object} util.Response{data=model.SyncResult}
// @Failure 410 {object} util.Response
// @Router /api/attempts/{id}/sync [put]
func (c *AttemptController) SyncAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	var req model.SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Revision == 0 {
		util.BadRequest(ctx, "revision is required")
		return
	}

	res, err := c.Attempts.Sync(ctx.Request.Context(), id, user.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 提交测试
// @Tags 测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Param body body model.CompleteRequest true "本地评分与全部答案"
// @Success 200 {object} util.Response{data=model.TestAttempt}
// @Router /api/attempts/{id}/complete [post]
func (c *AttemptController) CompleteAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	var req model.CompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Attempts.Complete(ctx.Request.Context(), id, user.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 更新尝试状态
// @Description interrupted / in_progress / expired / abandoned
// @Tags 测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Param body body model.StatusRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.TestAttempt}
// @Router /api/attempts/{id}/status [post]
func (c *AttemptController) UpdateStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	var req model.StatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Attempts.UpdateStatus(ctx.Request.Context(), id, user.UserID, req.Status)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 分配下的全部尝试
// @Tags 教师
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=[]model.TestAttempt}
// @Router /api/teacher/assignments/{id}/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	attempts, err := c.Attempts.List(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
