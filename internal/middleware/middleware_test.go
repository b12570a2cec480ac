package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	})
	r.POST("/treasury", RequireRole(RoleAdmin, RoleTreasurer), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func bearer(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := IssueToken(secret, claims)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuth(t *testing.T) {
	r := newAuthRouter()
	valid := Claims{UserID: 7, Role: RoleTreasurer}
	expired := Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", bearer(t, "other", valid), http.StatusUnauthorized},
		{"expired", bearer(t, testSecret, expired), http.StatusUnauthorized},
		{"no user", bearer(t, testSecret, Claims{Role: RoleAdmin}), http.StatusUnauthorized},
		{"valid", bearer(t, testSecret, valid), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	for role, want := range map[string]int{
		RoleTreasurer: http.StatusNoContent,
		RoleAdmin:     http.StatusNoContent,
		RoleResident:  http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/treasury", nil)
		req.Header.Set("Authorization", bearer(t, testSecret, Claims{UserID: 1, Role: role}))
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, levelFor(http.StatusOK))
	assert.Equal(t, slog.LevelWarn, levelFor(http.StatusNotFound))
	assert.Equal(t, slog.LevelInfo, levelFor(http.StatusConflict))
	assert.Equal(t, slog.LevelError, levelFor(http.StatusInternalServerError))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://portal.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://portal.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portal.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
