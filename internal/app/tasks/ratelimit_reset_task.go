package tasks

import (
	"context"
	"fmt"
)

// newRateLimitResetTask creates the task that clears all per-user rate-limit
// windows. Useful on a coarse schedule as a safety valve; the limiter already
// resets expired windows lazily on the next request.
func newRateLimitResetTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "ratelimit_reset")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting rate limit reset task")

		cleared, err := deps.Store.ResetRateLimits(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Rate limit reset task failed", "error", err)
			return fmt.Errorf("rate limit reset failed: %w", err)
		}

		log.InfoContext(ctx, "Rate limit reset task completed", "cleared", cleared)
		return nil
	}
}
