package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nycscout/scout/internal/config"
)

// Dispatcher delivers an ordered message sequence to one user, waiting a
// randomized pacing delay between consecutive sends (never after the last).
// A transport failure aborts the remaining sends; partial delivery is a known
// failure mode and is not retried.
type Dispatcher struct {
	sender    Sender
	log       *slog.Logger
	pacingMin time.Duration
	pacingMax time.Duration

	// Injection points for tests.
	delay func() time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher with pacing bounds from configuration.
func NewDispatcher(sender Sender, log *slog.Logger, cfg config.InstagramConfig) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		log:       log.With("component", "dispatcher"),
		pacingMin: cfg.PacingMin,
		pacingMax: cfg.PacingMax,
		sleep:     sleepContext,
	}
	d.delay = d.randomDelay
	return d
}

// Deliver sends each message individually, strictly in order.
func (d *Dispatcher) Deliver(ctx context.Context, userKey string, messages []string) error {
	for i, msg := range messages {
		if err := d.sender.SendMessage(ctx, userKey, msg); err != nil {
			d.log.ErrorContext(ctx, "Message delivery aborted",
				"user_key", userKey, "sent", i, "total", len(messages), "error", err)
			return fmt.Errorf("delivery aborted after %d of %d messages: %w", i, len(messages), err)
		}

		if i < len(messages)-1 {
			if err := d.sleep(ctx, d.delay()); err != nil {
				return fmt.Errorf("delivery interrupted: %w", err)
			}
		}
	}

	d.log.DebugContext(ctx, "Delivered message sequence", "user_key", userKey, "count", len(messages))
	return nil
}

// randomDelay draws uniformly from [pacingMin, pacingMax).
func (d *Dispatcher) randomDelay() time.Duration {
	if d.pacingMax <= d.pacingMin {
		return d.pacingMin
	}
	return d.pacingMin + rand.N(d.pacingMax-d.pacingMin)
}

func sleepContext(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
