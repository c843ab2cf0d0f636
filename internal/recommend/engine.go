// Package recommend maps a classified intent to a ranked, capped list of
// candidate places or events. It owns the synonym tables and the
// normalization of loosely-typed store documents into the canonical Item
// shape, isolating the rest of the core from upstream schema drift.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/intent"
)

// Item is the canonical recommendation shape the composer consumes,
// regardless of which entity type it came from or which fields the upstream
// document happened to carry.
type Item struct {
	Name      string
	Kind      intent.Kind
	Tags      string
	Location  string
	PriceTier string
	Rating    float64
	StartsAt  *time.Time
	Price     string
	Link      string
	VibeTags  []string
}

// Engine resolves intents against the recommendation store.
type Engine struct {
	store      database.Store
	log        *slog.Logger
	maxResults int
	fetchLimit int
	now        func() time.Time
}

// NewEngine creates a query engine bounded by the recommend configuration.
func NewEngine(store database.Store, log *slog.Logger, cfg config.RecommendConfig) *Engine {
	return &Engine{
		store:      store,
		log:        log.With("component", "recommend_engine"),
		maxResults: cfg.MaxResults,
		fetchLimit: cfg.FetchLimit,
		now:        time.Now,
	}
}

// QueryPlaces returns up to the configured cap of places matching the intent,
// best-rated first, optionally re-ranked by vibe overlap. An empty result is
// a valid terminal state, not an error.
func (e *Engine) QueryPlaces(ctx context.Context, rec intent.Record) ([]Item, error) {
	filter := database.PlaceFilter{}

	if !IsBroadLocation(rec.Borough) {
		filter.Location = rec.Borough
	}
	if rec.Cuisine != "" {
		filter.Cuisine = NormalizeCuisine(rec.Cuisine)
	}
	if rec.PriceIntent != "" {
		filter.PriceTier = NormalizePriceTier(rec.PriceIntent)
	}

	places, err := e.store.QueryPlaces(ctx, filter, e.fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("places query failed: %w", err)
	}

	items := make([]Item, 0, len(places))
	for _, p := range places {
		items = append(items, placeItem(p))
	}

	items = e.rankAndCap(items, rec.VibeSignal)
	e.log.DebugContext(ctx, "Resolved place recommendations",
		"count", len(items), "borough", rec.Borough, "cuisine", rec.Cuisine)
	return items, nil
}

// QueryEvents returns up to the configured cap of active, future events
// matching the intent, soonest first, optionally re-ranked by vibe overlap.
func (e *Engine) QueryEvents(ctx context.Context, rec intent.Record) ([]Item, error) {
	filter := database.EventFilter{After: e.now()}

	if !IsBroadLocation(rec.Borough) {
		filter.Location = rec.Borough
	}
	if rec.Category != "" {
		filter.Category = NormalizeCategory(rec.Category)
	}

	events, err := e.store.QueryEvents(ctx, filter, e.fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("events query failed: %w", err)
	}

	items := make([]Item, 0, len(events))
	for _, ev := range events {
		items = append(items, eventItem(ev))
	}

	items = e.rankAndCap(items, rec.VibeSignal)
	e.log.DebugContext(ctx, "Resolved event recommendations",
		"count", len(items), "borough", rec.Borough, "category", rec.Category)
	return items, nil
}

// rankAndCap applies the optional vibe re-rank (stable, matches first) and
// truncates to the configured cap.
func (e *Engine) rankAndCap(items []Item, vibe string) []Item {
	if vibe != "" && len(items) > 0 {
		v := strings.ToLower(vibe)
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].matchesVibe(v) && !items[j].matchesVibe(v)
		})
	}

	if len(items) > e.maxResults {
		items = items[:e.maxResults]
	}
	return items
}

func (it Item) matchesVibe(vibe string) bool {
	for _, tag := range it.VibeTags {
		if strings.Contains(strings.ToLower(tag), vibe) {
			return true
		}
	}
	return false
}

// placeItem normalizes a loosely-typed place document.
func placeItem(p database.Place) Item {
	return Item{
		Name:      p.Name,
		Kind:      intent.KindRestaurant,
		Tags:      p.CuisineTags.String,
		Location:  p.Address.String,
		PriceTier: p.PriceTier.String,
		Rating:    p.Rating.Float64,
		VibeTags:  splitTags(p.VibeTags.String),
	}
}

// eventItem normalizes a loosely-typed event document.
func eventItem(ev database.Event) Item {
	startsAt := ev.StartsAt
	return Item{
		Name:     ev.Name,
		Kind:     intent.KindEvent,
		Tags:     ev.Category.String,
		Location: ev.Borough.String,
		StartsAt: &startsAt,
		Price:    ev.Price.String,
		Link:     ev.Link.String,
		VibeTags: splitTags(ev.VibeTags.String),
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
