package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(secret)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/me", handlers...)
	return r
}

func get(r *gin.Engine, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	token, err := util.GenerateJWT(5, model.Student, secret, time.Hour)
	require.NoError(t, err)
	other, err := util.GenerateJWT(5, model.Student, "other", time.Hour)
	require.NoError(t, err)
	expired, err := util.GenerateJWT(5, model.Student, secret, -time.Minute)
	require.NoError(t, err)

	r := newRouter()
	assert.Equal(t, http.StatusOK, get(r, "/me", token).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me?token="+token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", other).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", expired).Code)
}

func TestRoleMiddleware(t *testing.T) {
	student, _ := util.GenerateJWT(1, model.Student, secret, time.Hour)
	teacher, _ := util.GenerateJWT(2, model.Teacher, secret, time.Hour)
	admin, _ := util.GenerateJWT(3, model.Admin, secret, time.Hour)

	r := newRouter(model.Teacher)
	assert.Equal(t, http.StatusForbidden, get(r, "/me", student).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", teacher).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", admin).Code)
}
