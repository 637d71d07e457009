package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/observability/logger"
)

type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisRateLimiter is a fixed-window counter shared by every replica through Redis.
// A window admits requests_per_second + burst requests per key.
type RedisRateLimiter struct {
	client    redisClient
	limit     int64
	window    time.Duration
	opTimeout time.Duration
	prefix    string
	log       logger.Logger
}

// NewRedisRateLimiter connects to cfg.Redis.URL and pings it.
func NewRedisRateLimiter(cfg config.RateLimitConfig, log logger.Logger) (*RedisRateLimiter, error) {
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis URL is required for distributed rate limiting")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, errors.New("requests_per_second must be greater than zero")
	}
	if cfg.Burst < 0 {
		return nil, errors.New("burst cannot be negative")
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Redis.MaxConns > 0 {
		opts.PoolSize = cfg.Redis.MaxConns
	}
	timeout := cfg.Redis.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis rate limiter ping failed: %w", err)
	}

	limiter := newRedisRateLimiterFromClient(client, cfg, timeout, log)
	log.Info("redis rate limiter connected",
		"limit", limiter.limit,
		"window", limiter.window,
		"prefix", limiter.prefix,
	)
	return limiter, nil
}

func newRedisRateLimiterFromClient(client redisClient, cfg config.RateLimitConfig, timeout time.Duration, log logger.Logger) *RedisRateLimiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "taskboard:ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     int64(cfg.RequestsPerSecond + cfg.Burst),
		window:    window,
		opTimeout: timeout,
		prefix:    prefix,
		log:       log,
	}
}

// Allow increments the window counter of key. Redis failures let the request through.
func (r *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	redisKey := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.log.Error("redis rate limiter increment failed", "error", err)
		return true
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			r.log.Warn("redis rate limiter failed to set TTL", "error", err)
		}
	}

	return r.limit == 0 || count <= r.limit
}

// HealthCheck pings Redis with the operation timeout.
func (r *RedisRateLimiter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis rate limiter health check failed: %w", err)
	}
	return nil
}

// Close shuts down the Redis client.
func (r *RedisRateLimiter) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// New builds the limiter selected by cfg.Backend. The returned close function is never nil.
func New(cfg config.RateLimitConfig, log logger.Logger) (RateLimiter, func() error, error) {
	switch cfg.Backend {
	case "", config.RateLimitBackendMemory:
		return NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst), func() error { return nil }, nil
	case config.RateLimitBackendRedis:
		limiter, err := NewRedisRateLimiter(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return limiter, limiter.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}
