package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/skillswap/skillswap/internal/cache"
)

// IPRateLimiter checks one client IP against a named bucket.
// *cache.Cache satisfies it.
type IPRateLimiter interface {
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPRateLimiter
	Enabled bool
}

// RateLimitIP returns middleware that limits requests per client IP for one
// route scope, e.g. "matches" or "login". Each scope has its own bucket.
// Redis failures let the request through and are logged.
func RateLimitIP(cfg RateLimitConfig, scope string, perMinute, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), scope, ip, perMinute, burst)
			if err != nil || result == nil {
				cfg.Logger.Error("rate_limit_check_failed",
					slog.String("scope", scope),
					slog.Any("error", err),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}
			if result.Degraded != nil {
				cfg.Logger.Warn("rate_limit_degraded",
					slog.String("scope", scope),
					slog.String("error", result.Degraded.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			setRateLimitHeaders(w, perMinute, result)

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				cfg.Logger.Warn("rate_limit_exceeded",
					slog.String("scope", scope),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets the X-RateLimit-* response headers.
func setRateLimitHeaders(w http.ResponseWriter, perMinute int, result *cache.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// clientIP returns the host part of r.RemoteAddr. The router runs chi's
// RealIP first, so RemoteAddr already reflects X-Forwarded-For or
// X-Real-IP when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
