package util

import (
	"errors"
	"net/http"

	"lms_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.L().Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	InternalServerError(c)
}

// HandleServiceError 把业务错误映射成 HTTP 状态码，其余按 500 处理
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAssignmentNotFound), errors.Is(err, ErrAttemptNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrChapterLocked):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAttemptsExhausted):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAttemptClosed):
		Error(c, http.StatusGone, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrBusy):
		Error(c, http.StatusTooManyRequests, err.Error())
	default:
		LogInternalError(c, err)
	}
}
