// Package ratelimit throttles requests per client key.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/server/router"
	"golang.org/x/time/rate"
)

// MsgTooManyRequests is the message returned with 429 responses.
const MsgTooManyRequests = "Too many requests, retry later"

// RateLimiter decides whether a request for key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(key string) bool
}

// TokenBucketLimiter keeps one token bucket per key in process memory.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter refills requestsPerSecond tokens per second up to burst.
func NewTokenBucketLimiter(requestsPerSecond int, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// Allow consumes one token from the bucket of key.
func (l *TokenBucketLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *TokenBucketLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

// Config defines the configuration for rate limiting middleware.
type Config struct {
	// KeyFunc extracts the limiting key. Defaults to the client IP.
	KeyFunc func(router.Context) string
	// RetryAfter is the value of the Retry-After header, in seconds.
	RetryAfter string
}

// RateLimit rejects requests over the limit with 429 and a Retry-After header.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c router.Context) string { return ExtractIPFromRequest(c.Request()) }
	}
	retryAfter := cfg.RetryAfter
	if retryAfter == "" {
		retryAfter = "1"
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if !limiter.Allow(keyFunc(c)) {
				c.Response().Header().Set("Retry-After", retryAfter)
				return controller.Error(c, controller.NewTooManyRequestsError(MsgTooManyRequests))
			}
			return next(c)
		}
	}
}

// ExtractIPFromRequest returns the first X-Forwarded-For hop, then X-Real-IP,
// then the host part of RemoteAddr.
func ExtractIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ExtractUserIDFromContext returns the authenticated user id, or "" on public routes.
func ExtractUserIDFromContext(c router.Context) string {
	claims := authz.Claims(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// KeyByUserOrIP limits authenticated callers per user and anonymous ones per IP.
func KeyByUserOrIP(c router.Context) string {
	if id := ExtractUserIDFromContext(c); id != "" {
		return "user:" + id
	}
	return "ip:" + ExtractIPFromRequest(c.Request())
}
