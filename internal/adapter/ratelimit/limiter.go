// Package ratelimit implements fixed-window, per-tenant admission control.
// Fixed windows trade edge-of-window burst tolerance for O(1) memory and
// trivial correctness; the denial signal is advisory (429 + Retry-After),
// not a hard security boundary.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Class groups operations that share a quota.
type Class string

const (
	// ClassRequests covers read-style plugin API calls.
	ClassRequests Class = "requests"
	// ClassWrites covers mutating plugin API calls.
	ClassWrites Class = "writes"
)

// Policy is the per-class quota configuration.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result is the admission decision plus the metadata callers surface as
// X-RateLimit-* response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole-second delay until the window resets, floored at
// one second so a 429 never carries Retry-After: 0.
func (r Result) RetryAfter(now time.Time) int {
	if !now.Before(r.ResetAt) {
		return 0
	}
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// WindowStore atomically increments the counter for key within the current
// fixed window, starting a new window when the previous one has expired.
// Implementations must guarantee read-modify-write atomicity per key.
type WindowStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter applies per-class policies over a WindowStore.
type Limiter struct {
	store    WindowStore
	policies map[Class]Policy
}

// NewLimiter creates a limiter with the given per-class policies.
func NewLimiter(store WindowStore, policies map[Class]Policy) *Limiter {
	return &Limiter{store: store, policies: policies}
}

// Check admits or denies one request for (tenantID, class). The counter is
// incremented on every call, including denied ones, so a saturated tenant
// keeps seeing Remaining: 0 until the window turns over. A store failure is
// returned to the caller; admission is never granted silently on error.
func (l *Limiter) Check(ctx context.Context, tenantID string, class Class) (Result, error) {
	policy, ok := l.policies[class]
	if !ok {
		policy = l.policies[ClassRequests]
	}

	key := fmt.Sprintf("ratelimit:%s:%s", tenantID, class)
	count, resetAt, err := l.store.Incr(ctx, key, policy.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := policy.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(policy.Limit),
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
