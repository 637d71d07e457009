package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

func TestTokenBucketLimiter_Allow(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond int
		burst             int
		numRequests       int
		wantAllowed       int
	}{
		{name: "all requests within burst", requestsPerSecond: 10, burst: 20, numRequests: 20, wantAllowed: 20},
		{name: "requests exceed burst", requestsPerSecond: 10, burst: 5, numRequests: 10, wantAllowed: 5},
		{name: "zero burst rejects everything", requestsPerSecond: 10, burst: 0, numRequests: 3, wantAllowed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewTokenBucketLimiter(tt.requestsPerSecond, tt.burst)
			allowed := 0
			for i := 0; i < tt.numRequests; i++ {
				if limiter.Allow("ip:10.0.0.1") {
					allowed++
				}
			}
			if allowed != tt.wantAllowed {
				t.Errorf("allowed = %d, want %d", allowed, tt.wantAllowed)
			}
		})
	}
}

func TestTokenBucketLimiter_PerKeyIsolation(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 2)

	for i := 0; i < 2; i++ {
		if !limiter.Allow("a") {
			t.Fatalf("request %d for a should be allowed", i)
		}
	}
	if limiter.Allow("a") {
		t.Fatal("a should be limited")
	}
	if !limiter.Allow("b") {
		t.Fatal("b has its own bucket")
	}
}

func TestTokenBucketLimiter_TokenRefill(t *testing.T) {
	limiter := NewTokenBucketLimiter(10, 1)

	if !limiter.Allow("user") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("user") {
		t.Fatal("second request should be limited")
	}

	// 10 req/s refills one token every 100ms
	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow("user") {
		t.Fatal("request after refill should be allowed")
	}
}

func TestTokenBucketLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("expected exactly the burst of 50 to pass, got %d", got)
	}
}

func TestRateLimit_RejectsWithJSONError(t *testing.T) {
	r := nethttp.NewRouter()
	r.POST("/login", func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"token": "t"})
	}, RateLimit(NewTokenBucketLimiter(1, 2), Config{}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.7:5000"
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if last.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", last.Header().Get("Retry-After"))
	}
	var body controller.ErrorResponse
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Code != "request.rate_limited" || body.Message != MsgTooManyRequests {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	r := nethttp.NewRouter()
	r.POST("/login", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(NewTokenBucketLimiter(1, 1), Config{RetryAfter: "30"}))

	for _, addr := range []string{"192.0.2.1:1", "192.0.2.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", addr, w.Code)
		}
	}
}

func TestExtractIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, remoteAddr: "10.0.0.2:80", want: "203.0.113.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 203.0.113.9 "}, remoteAddr: "10.0.0.2:80", want: "203.0.113.9"},
		{name: "remote addr", remoteAddr: "198.51.100.4:4242", want: "198.51.100.4"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "remote addr without port", remoteAddr: "198.51.100.4", want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ExtractIPFromRequest(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	var keys []string
	r := nethttp.NewRouter()
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if c.Request().Header.Get("X-Test-User") != "" {
				c.Set(authz.ClaimsKey, &auth.Claims{UserID: c.Request().Header.Get("X-Test-User")})
			}
			keys = append(keys, KeyByUserOrIP(c))
			return next(c)
		}
	})
	r.GET("/boards", func(c router.Context) error { return c.String(http.StatusOK, "[]") })

	anon := httptest.NewRequest(http.MethodGet, "/boards", nil)
	anon.RemoteAddr = "192.0.2.5:1000"
	r.ServeHTTP(httptest.NewRecorder(), anon)

	authed := httptest.NewRequest(http.MethodGet, "/boards", nil)
	authed.Header.Set("X-Test-User", "u-1")
	r.ServeHTTP(httptest.NewRecorder(), authed)

	if len(keys) != 2 || keys[0] != "ip:192.0.2.5" || keys[1] != "user:u-1" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
