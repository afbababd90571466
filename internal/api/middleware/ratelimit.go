package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/helmsley-labs/docqa/internal/api"
	"github.com/helmsley-labs/docqa/internal/ratelimit"
)

// anonymousIdentity is charged when no forwarding header names a
// client, so unidentified traffic shares one window.
const anonymousIdentity = "anonymous"

// Identity derives the rate-limit key for a request: first
// X-Forwarded-For hop, then X-Real-IP, then the shared anonymous key.
func Identity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return anonymousIdentity
}

// RateLimit guards the wrapped handler with per-identity admission
// control. Rejections are 429 with machine-readable retry hints; they
// are an expected outcome, not an error.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Check(Identity(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retryAfterSec := int(math.Ceil(result.RetryAfter.Seconds()))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.RetryAfter).UnixMilli(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
				api.JSON(w, http.StatusTooManyRequests, map[string]string{
					"error":   "Rate limit exceeded",
					"message": fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfterSec),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
