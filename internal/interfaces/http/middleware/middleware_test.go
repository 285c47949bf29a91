package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/ratelimit"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/", ok)
	r.GET("/health/", ok)
	r.POST("/generate_repo/", ok)
	r.OPTIONS("/generate_repo/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAPIKey(t *testing.T) {
	r := newEngine(APIKey(APIKeyConfig{Key: "s3cret", SkipPaths: []string{"/"}}))

	cases := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"root is public", http.MethodGet, "/", "", http.StatusOK},
		{"preflight is public", http.MethodOptions, "/generate_repo/", "", http.StatusNoContent},
		{"missing key", http.MethodPost, "/generate_repo/", "", http.StatusUnauthorized},
		{"wrong key", http.MethodGet, "/health/", "nope", http.StatusUnauthorized},
		{"correct key", http.MethodPost, "/generate_repo/", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, map[string]string{APIKeyHeader: tc.key})
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				resp := decodeError(t, w)
				assert.Equal(t, "Invalid or missing API key", resp.Message)
				assert.Equal(t, "UNAUTHORIZED", resp.Error.ErrorCode)
			}
		})
	}
}

func TestAPIKey_DisabledInDevelopment(t *testing.T) {
	r := newEngine(APIKey(APIKeyConfig{Key: "", Disabled: true}))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/generate_repo/", nil).Code)
}

func TestAPIKey_EmptyExpectedKeyRejects(t *testing.T) {
	r := newEngine(APIKey(APIKeyConfig{Key: ""}))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/generate_repo/", map[string]string{APIKeyHeader: ""}).Code)
}

func TestRateLimit_SixthRequestRejected(t *testing.T) {
	r := newEngine(RateLimit(RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute, Backend: "memory"}, ratelimit.NewMemoryLimiter()))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/generate_repo/", nil).Code, "request %d", i+1)
	}
	w := do(r, http.MethodPost, "/generate_repo/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Error.ErrorCode)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := newEngine(RateLimit(RateLimitConfig{Enabled: true, Backend: "redis"}, failingLimiter{}))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/generate_repo/", nil).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newEngine(RateLimit(RateLimitConfig{Enabled: false}, failingLimiter{}))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/generate_repo/", nil).Code)
	}
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())
	w := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w).Message)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCORS_Preflight(t *testing.T) {
	r := newEngine(CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}))
	w := do(r, http.MethodOptions, "/generate_repo/", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
