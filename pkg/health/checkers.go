package health

import (
	"context"
	"time"
)

// Default check timeouts per dependency kind.
const (
	DatabaseTimeout    = 5 * time.Second
	ObjectStoreTimeout = 5 * time.Second
	RateLimiterTimeout = 2 * time.Second
)

// Checkable is implemented by the storage adapters and the Redis rate limiter.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker checks a Checkable within a timeout.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker creates a checker for adapter. A zero timeout means 5s.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout}
}

// NewDatabaseChecker checks the persistence backend: a ping for postgres
// and mongodb, always healthy for the memory store.
func NewDatabaseChecker(name string, db Checkable) *AdapterChecker {
	return NewAdapterChecker(name, db, DatabaseTimeout)
}

// NewObjectStoreChecker checks the S3 bucket holding uploads.
func NewObjectStoreChecker(name string, store Checkable) *AdapterChecker {
	return NewAdapterChecker(name, store, ObjectStoreTimeout)
}

// NewRateLimiterChecker checks the Redis server behind the shared rate limiter.
func NewRateLimiterChecker(name string, limiter Checkable) *AdapterChecker {
	return NewAdapterChecker(name, limiter, RateLimiterTimeout)
}

// Check runs the adapter health check.
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

// Name returns the name of the health check
func (c *AdapterChecker) Name() string {
	return c.name
}
