package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	assignments := group.Group("/assignments")
	{
		assignments.GET("/:id", c.assignment.GetAssignment)
		assignments.GET("/:id/deadline", c.assignment.GetDeadline)
		assignments.POST("/:id/attempts", c.attempt.StartAttempt)
		assignments.GET("/:id/progress", c.progress.GetProgress)
		assignments.GET("/:id/chapters", c.progress.GetChapters)
	}

	attempts := group.Group("/attempts")
	{
		attempts.PUT("/:id/sync", c.attempt.SyncAttempt)
		attempts.POST("/:id/complete", c.attempt.CompleteAttempt)
		attempts.POST("/:id/status", c.attempt.UpdateStatus)
		attempts.GET("/:id/countdown/ws", c.countdown.Stream)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/assignments/:id/attempts", c.attempt.ListAttempts)
	}
}
