package server

import (
	"context"
	"sync"
	"time"
)

// Pinger verifies connectivity to a dependency. *db.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports database health for the health endpoint, caching the
// result for a TTL so probes cannot hammer the database.
type HealthChecker struct {
	db  Pinger
	ttl time.Duration

	mu      sync.Mutex
	checked time.Time
	result  error

	now func() time.Time
}

// NewHealthChecker creates a health checker with the given cache TTL.
func NewHealthChecker(db Pinger, ttl time.Duration) *HealthChecker {
	return &HealthChecker{db: db, ttl: ttl, now: time.Now}
}

// Check pings the database, returning the cached result while it is fresh.
func (h *HealthChecker) Check(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if !h.checked.IsZero() && now.Sub(h.checked) < h.ttl {
		return h.result
	}

	h.result = h.db.Ping(ctx)
	h.checked = now
	return h.result
}
