package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ContentStudio-server/models"
	"ContentStudio-server/models/modelstest"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(db, testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	r.GET("/admin", RequireAuth(db, testSecret), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueAndParseToken(t *testing.T) {
	u := &models.User{ID: 7, Role: models.RoleAdmin}
	tok, err := IssueToken(u, testSecret, time.Hour)
	require.NoError(t, err)

	id, claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, _, err = ParseToken(tok, "other-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := IssueToken(&models.User{ID: 1}, testSecret, -time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken(tok, testSecret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, _, err = ParseToken(tok, testSecret)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	db := modelstest.OpenDB(t)
	user := modelstest.CreateUser(t, db, "user@example.com", models.RoleUser)
	admin := modelstest.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	r := protectedRouter(db)

	userTok, _ := IssueToken(user, testSecret, time.Hour)
	adminTok, _ := IssueToken(admin, testSecret, time.Hour)
	expired, _ := IssueToken(user, testSecret, -time.Hour)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", expired).Code)
	assert.Equal(t, http.StatusOK, do(r, "/me", userTok).Code)
	assert.Equal(t, http.StatusOK, do(r, "/me?token="+userTok, "").Code, "query token")

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", userTok).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", adminTok).Code)

	require.NoError(t, models.UpdateUser(db, user.ID, map[string]any{"ativo": false}))
	w := do(r, "/me", userTok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "usuário desativado")
}

func TestUserRateLimiter(t *testing.T) {
	l := NewUserRateLimiter(60, 2)

	ok, _ := l.Allow(1)
	assert.True(t, ok)
	ok, _ = l.Allow(1)
	assert.True(t, ok)
	ok, wait := l.Allow(1)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.Allow(2)
	assert.True(t, ok, "buckets are per user")

	assert.Nil(t, NewUserRateLimiter(0, 5))
}

func TestRateLimitMiddleware(t *testing.T) {
	db := modelstest.OpenDB(t)
	user := modelstest.CreateUser(t, db, "rl@example.com", models.RoleUser)
	tok, _ := IssueToken(user, testSecret, time.Hour)

	r := gin.New()
	r.GET("/gen", RequireAuth(db, testSecret), NewUserRateLimiter(1, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(r, "/gen", tok).Code)
	w := do(r, "/gen", tok)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var unlimited *UserRateLimiter
	r2 := gin.New()
	r2.GET("/gen", RequireAuth(db, testSecret), unlimited.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r2, "/gen", tok).Code)
	}
}
