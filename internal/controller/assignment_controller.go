package controller

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentAPI interface {
	Get(ctx context.Context, id, userID uint, role model.UserRole) (*model.Assignment, error)
	Deadline(ctx context.Context, id, userID uint, role model.UserRole) (*service.DeadlineInfo, error)
}

type AssignmentController struct {
	Assignments AssignmentAPI
}

func NewAssignmentController(assignments AssignmentAPI) *AssignmentController {
	return &AssignmentController{Assignments: assignments}
}

// @Summary 获取测试分配
// @Description 返回分配、测试及题目，questionsCount 为题目数
// @Tags 测试
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=model.TestAssignment}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Assignments.Get(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a.View())
}

// @Summary 分配截止倒计时
// @Tags 测试
// @Produce json
// @Security BearerAuth
// @Param id path int true "分配ID"
// @Success 200 {object} util.Response{data=service.DeadlineInfo}
// @Router /api/assignments/{id}/deadline [get]
func (c *AssignmentController) GetDeadline(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	info, err := c.Assignments.Deadline(ctx.Request.Context(), id, user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, info)
}
