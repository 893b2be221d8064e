package middleware

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/model"
	"careerx_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "middleware-secret", ExpireTime: time.Hour}}
}

func token(t *testing.T, cfg *config.Config, role model.UserRole) string {
	t.Helper()
	u := &model.User{Email: "a@b.c", Role: role}
	u.ID = 9
	tok, err := util.GenerateJWT(u, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	require.NoError(t, err)
	return tok
}

func newRouter(cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": util.GetUserFromContext(c).UserID})
	})
	r.GET("/p", handlers...)
	return r
}

func do(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	r := newRouter(cfg)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	other := &config.Config{JWT: config.JWTConfig{Secret: "someone-else", ExpireTime: time.Hour}}
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+token(t, other, model.RoleStudent)).Code)

	w := do(r, "Bearer "+token(t, cfg, model.RoleStudent))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":9}`, w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	cfg := testConfig()
	r := newRouter(cfg, RoleMiddleware(model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+token(t, cfg, model.RoleStudent)).Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+token(t, cfg, model.RoleAdmin)).Code)
}

type recordingRepo struct {
	seen chan uint
}

func (r *recordingRepo) UpdateLastSeen(userID uint) error {
	r.seen <- userID
	return nil
}

func TestActivityMiddleware(t *testing.T) {
	cfg := testConfig()
	repo := &recordingRepo{seen: make(chan uint, 1)}
	r := newRouter(cfg, ActivityMiddleware(repo))

	assert.Equal(t, http.StatusOK, do(r, "Bearer "+token(t, cfg, model.RoleStudent)).Code)
	select {
	case id := <-repo.seen:
		assert.Equal(t, uint(9), id)
	case <-time.After(time.Second):
		t.Fatal("last seen was not updated")
	}
}
