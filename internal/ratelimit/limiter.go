// Package ratelimit gates inbound messages with a per-user fixed window
// backed by persistent counters.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
)

// Result is the outcome of one gate check.
type Result struct {
	Allowed   bool
	Remaining int
}

// Limiter enforces the per-user request window. Every call persists the
// updated record; a persistence failure propagates so the caller aborts the
// turn rather than silently allowing unlimited requests.
type Limiter struct {
	store       database.Store
	log         *slog.Logger
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewLimiter creates a limiter from the rate-limit configuration.
func NewLimiter(store database.Store, log *slog.Logger, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		store:       store,
		log:         log.With("component", "rate_limiter"),
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		now:         time.Now,
	}
}

// CheckAndConsume loads (or lazily creates) the user's window record, applies
// the window rules, and persists the result.
func (l *Limiter) CheckAndConsume(ctx context.Context, userKey string) (Result, error) {
	rec, err := l.store.GetRateLimit(ctx, userKey)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load rate limit record: %w", err)
	}

	result, updated := l.decide(rec, l.now().UTC())
	updated.UserKey = userKey

	if err := l.store.SaveRateLimit(ctx, &updated); err != nil {
		return Result{}, fmt.Errorf("failed to persist rate limit record: %w", err)
	}

	if !result.Allowed {
		l.log.InfoContext(ctx, "Rate limit exceeded", "user_key", userKey,
			"window_start", updated.WindowStart, "count", updated.RequestCount)
	}
	return result, nil
}

// decide applies the fixed-window rules: a missing record starts a window at
// count 1; an expired window resets to count 1; a full window denies without
// incrementing; otherwise the count increments.
func (l *Limiter) decide(rec *database.RateLimit, now time.Time) (Result, database.RateLimit) {
	if rec == nil {
		return Result{Allowed: true, Remaining: l.maxRequests - 1}, database.RateLimit{
			RequestCount: 1,
			WindowStart:  now,
			LastRequest:  now,
		}
	}

	updated := *rec
	updated.LastRequest = now

	if now.Sub(rec.WindowStart) > l.window {
		updated.RequestCount = 1
		updated.WindowStart = now
		return Result{Allowed: true, Remaining: l.maxRequests - 1}, updated
	}

	if rec.RequestCount >= l.maxRequests {
		return Result{Allowed: false, Remaining: 0}, updated
	}

	updated.RequestCount++
	return Result{Allowed: true, Remaining: l.maxRequests - updated.RequestCount}, updated
}
