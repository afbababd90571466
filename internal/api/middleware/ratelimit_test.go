package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/helmsley-labs/docqa/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, handler http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "anonymous", Identity(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", Identity(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", Identity(req))
}

func TestRateLimit_SuccessHeaders(t *testing.T) {
	limiter := ratelimit.NewLimiter(10, time.Minute)
	handler := RateLimit(limiter)(okHandler())

	w := doRequest(t, handler, map[string]string{"X-Forwarded-For": "198.51.100.7"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	handler := RateLimit(limiter)(okHandler())
	headers := map[string]string{"X-Real-IP": "203.0.113.9"}

	require.Equal(t, http.StatusOK, doRequest(t, handler, headers).Code)
	require.Equal(t, http.StatusOK, doRequest(t, handler, headers).Code)

	w := doRequest(t, handler, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)

	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, reset, time.Now().UnixMilli())

	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestRateLimit_IdentitiesDoNotShareWindows(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	handler := RateLimit(limiter)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(t, handler, map[string]string{"X-Real-IP": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, handler, map[string]string{"X-Real-IP": "a"}).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, handler, map[string]string{"X-Real-IP": "b"}).Code)
}

func TestRateLimit_AnonymousSharesOneWindow(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	handler := RateLimit(limiter)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(t, handler, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, handler, nil).Code)
}
