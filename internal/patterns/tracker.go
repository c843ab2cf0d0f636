// Package patterns accumulates soft per-user personalization signals from
// successful recommendations and decides when a pattern-aware greeting is
// warranted. Signals are advisory only; nothing here gates a recommendation.
package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/intent"
	"github.com/nycscout/scout/internal/recommend"
)

// MinInteractionsForGreeting is how many successful recommendations a user
// needs before greetings become personal.
const MinInteractionsForGreeting = 3

// Tracker reads and updates user preference profiles.
type Tracker struct {
	store database.Store
	log   *slog.Logger
}

// NewTracker creates a pattern tracker backed by the store.
func NewTracker(store database.Store, log *slog.Logger) *Tracker {
	return &Tracker{
		store: store,
		log:   log.With("component", "pattern_tracker"),
	}
}

// GetProfile retrieves a user's profile, or nil if none exists yet.
func (t *Tracker) GetProfile(ctx context.Context, userKey string) (*database.UserProfile, error) {
	return t.store.GetUserProfile(ctx, userKey)
}

// RecordSuccess updates the profile after a non-empty recommendation set was
// dispatched. Frequency counters only ever grow; the budget bias is a damped
// running average over the 1-4 price scale, not a simple increment.
func (t *Tracker) RecordSuccess(ctx context.Context, userKey string, rec intent.Record) error {
	profile, err := t.store.GetUserProfile(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to load profile for pattern update: %w", err)
	}
	if profile == nil {
		profile = &database.UserProfile{
			UserKey:        userKey,
			BoroughCounts:  "{}",
			CuisineCounts:  "{}",
			CategoryCounts: "{}",
		}
	}

	profile.InteractionCount++
	profile.LastInteraction = time.Now().UTC()

	if rec.Borough != "" {
		profile.BoroughCounts = bumpCount(profile.BoroughCounts, rec.Borough)
	}
	if rec.Cuisine != "" {
		profile.CuisineCounts = bumpCount(profile.CuisineCounts, rec.Cuisine)
	}
	if rec.Category != "" {
		profile.CategoryCounts = bumpCount(profile.CategoryCounts, rec.Category)
	}

	if ordinal := priceOrdinal(rec.PriceIntent); ordinal > 0 {
		if profile.BudgetBias == 0 {
			profile.BudgetBias = float64(ordinal)
		} else {
			profile.BudgetBias = (profile.BudgetBias + float64(ordinal)) / 2
		}
	}

	if err := t.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save pattern update: %w", err)
	}

	t.log.DebugContext(ctx, "Recorded recommendation success",
		"user_key", userKey, "interaction_count", profile.InteractionCount)
	return nil
}

// GreetingContext is the historical signal handed to the greeting call.
// TopCuisine is already blanked when it would contradict the current turn.
type GreetingContext struct {
	TopBorough     string
	TopCuisine     string
	CurrentCuisine string
}

// GreetingContext decides whether this turn earns a personalized greeting and
// with what signal. Returns nil when the user has too little history. When
// the current request's cuisine differs from the historical favorite, the
// favorite is dropped so the greeting cannot contradict the user's current
// ask.
func (t *Tracker) GreetingContext(profile *database.UserProfile, rec intent.Record) *GreetingContext {
	if profile == nil || profile.InteractionCount < MinInteractionsForGreeting {
		return nil
	}

	gc := &GreetingContext{
		TopBorough:     TopKey(decodeCounts(profile.BoroughCounts)),
		TopCuisine:     TopKey(decodeCounts(profile.CuisineCounts)),
		CurrentCuisine: rec.Cuisine,
	}

	if rec.Cuisine != "" && gc.TopCuisine != "" && !strings.EqualFold(rec.Cuisine, gc.TopCuisine) {
		gc.TopCuisine = ""
	}

	if gc.TopBorough == "" && gc.TopCuisine == "" {
		return nil
	}
	return gc
}

// TopKey returns the highest-count key; ties break to the lexicographically
// smallest key so the choice is deterministic across runs.
func TopKey(counts map[string]int) string {
	top := ""
	max := 0
	for k, v := range counts {
		if v > max || (v == max && v > 0 && (top == "" || k < top)) {
			top = k
			max = v
		}
	}
	return top
}

func decodeCounts(raw string) map[string]int {
	counts := map[string]int{}
	if raw == "" {
		return counts
	}
	// Corrupt profile data degrades to an empty map rather than failing a turn.
	_ = json.Unmarshal([]byte(raw), &counts)
	return counts
}

func bumpCount(raw, key string) string {
	counts := decodeCounts(raw)
	counts[key]++
	encoded, err := json.Marshal(counts)
	if err != nil {
		return raw
	}
	return string(encoded)
}

// priceOrdinal maps a price hint onto the 1-4 scale via the tier symbols.
func priceOrdinal(price string) int {
	switch recommend.NormalizePriceTier(price) {
	case "$":
		return 1
	case "$$":
		return 2
	case "$$$":
		return 3
	case "$$$$":
		return 4
	}
	return 0
}
