package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/security"
)

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "req-abc-123", w.Header().Get("X-Request-Id"))
}

func TestRateLimit_BurstThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(1, 2))
	r.POST("/login", okHandler)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimit_SeparateClientsSeparateBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(1, 1))
	r.POST("/login", okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:4000"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:4000"))
	require.Equal(t, http.StatusOK, send("10.0.0.2:4000"))
}

func TestRequireSuperuser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		user any
		want int
	}{
		{name: "no user on context", user: nil, want: http.StatusUnauthorized},
		{name: "regular user", user: models.User{ID: 1, IsActive: true}, want: http.StatusForbidden},
		{name: "superuser", user: models.User{ID: 1, IsActive: true, IsSuperuser: true}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			if tt.user != nil {
				r.Use(func(c *gin.Context) { c.Set("current_user", tt.user) })
			}
			r.Use(RequireSuperuser())
			r.DELETE("/tags/1", okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tags/1", nil))
			require.Equal(t, tt.want, w.Code)
		})
	}
}

// Auth's rejection paths need no running session store; the middleware
// aborts before touching the repositories.
func TestAuth_MissingOrMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{}
	cfg.Security.JWTAccessSecret = "test-secret"

	r := gin.New()
	r.Use(Auth(cfg, nil, nil))
	r.GET("/me", okHandler)

	for _, header := range []string{"", "Token abc", "bearer lowercase"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuth_RejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{}
	cfg.Security.JWTAccessSecret = "test-secret"

	r := gin.New()
	r.Use(Auth(cfg, nil, nil))
	r.GET("/me", okHandler)

	signed, err := security.GenerateAccessToken("a-different-secret", 1, "sess-1", time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"garbage", signed} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
}
