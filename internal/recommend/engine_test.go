package recommend

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/intent"
)

type fakeStore struct {
	database.Store

	places      []database.Place
	events      []database.Event
	placeFilter database.PlaceFilter
	eventFilter database.EventFilter
	placeLimit  int
	queryErr    error
}

func (f *fakeStore) QueryPlaces(_ context.Context, filter database.PlaceFilter, limit int) ([]database.Place, error) {
	f.placeFilter = filter
	f.placeLimit = limit
	return f.places, f.queryErr
}

func (f *fakeStore) QueryEvents(_ context.Context, filter database.EventFilter, _ int) ([]database.Event, error) {
	f.eventFilter = filter
	return f.events, f.queryErr
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func place(name, vibes string, rating float64) database.Place {
	return database.Place{
		Name:        name,
		Address:     nullStr("123 Test St"),
		CuisineTags: nullStr("thai"),
		PriceTier:   nullStr("$$"),
		Rating:      sql.NullFloat64{Float64: rating, Valid: true},
		VibeTags:    nullStr(vibes),
	}
}

func newTestEngine(store database.Store) *Engine {
	return NewEngine(store, slog.Default(), config.RecommendConfig{
		MaxResults: 3,
		FetchLimit: 10,
	})
}

func TestQueryPlaces_CapsResults(t *testing.T) {
	t.Parallel()

	store := &fakeStore{places: []database.Place{
		place("A", "", 4.8), place("B", "", 4.7), place("C", "", 4.6), place("D", "", 4.5),
	}}
	e := newTestEngine(store)

	items, err := e.QueryPlaces(context.Background(), intent.Record{
		Kind: intent.KindRestaurant, Cuisine: "thai", Borough: "Brooklyn",
	})
	if err != nil {
		t.Fatalf("QueryPlaces() error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if store.placeLimit != 10 {
		t.Errorf("fetch limit = %d, want 10", store.placeLimit)
	}
	if items[0].Name != "A" {
		t.Errorf("first item = %q, want best-rated first", items[0].Name)
	}
}

func TestQueryPlaces_BroadLocationSkipsFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		borough      string
		wantLocation string
	}{
		{"Citywide", ""},
		{"anywhere", ""},
		{"", ""},
		{"Queens", "Queens"},
	}

	for _, tt := range tests {
		t.Run("borough_"+tt.borough, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{}
			e := newTestEngine(store)

			_, err := e.QueryPlaces(context.Background(), intent.Record{
				Kind: intent.KindRestaurant, Cuisine: "thai", Borough: tt.borough,
			})
			if err != nil {
				t.Fatalf("QueryPlaces() error: %v", err)
			}
			if store.placeFilter.Location != tt.wantLocation {
				t.Errorf("filter location = %q, want %q", store.placeFilter.Location, tt.wantLocation)
			}
		})
	}
}

func TestQueryPlaces_NormalizesFilters(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	e := newTestEngine(store)

	_, err := e.QueryPlaces(context.Background(), intent.Record{
		Kind: intent.KindRestaurant, Cuisine: "Sushi", Borough: "Manhattan", PriceIntent: "cheap",
	})
	if err != nil {
		t.Fatalf("QueryPlaces() error: %v", err)
	}
	if store.placeFilter.Cuisine != "japanese" {
		t.Errorf("cuisine filter = %q, want japanese", store.placeFilter.Cuisine)
	}
	if store.placeFilter.PriceTier != "$" {
		t.Errorf("price filter = %q, want $", store.placeFilter.PriceTier)
	}
}

func TestQueryPlaces_VibeRerankIsStable(t *testing.T) {
	t.Parallel()

	store := &fakeStore{places: []database.Place{
		place("Loud Bar", "lively,loud", 4.9),
		place("Quiet One", "date night,intimate", 4.7),
		place("Quiet Two", "cozy,date night", 4.5),
	}}
	e := newTestEngine(store)

	items, err := e.QueryPlaces(context.Background(), intent.Record{
		Kind: intent.KindRestaurant, Cuisine: "thai", Borough: "Brooklyn", VibeSignal: "date night",
	})
	if err != nil {
		t.Fatalf("QueryPlaces() error: %v", err)
	}

	wantOrder := []string{"Quiet One", "Quiet Two", "Loud Bar"}
	for i, want := range wantOrder {
		if items[i].Name != want {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, want)
		}
	}
}

func TestQueryPlaces_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{})

	items, err := e.QueryPlaces(context.Background(), intent.Record{
		Kind: intent.KindRestaurant, Cuisine: "georgian", Borough: "Staten Island",
	})
	if err != nil {
		t.Fatalf("QueryPlaces() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestQueryPlaces_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{queryErr: errors.New("db locked")})

	if _, err := e.QueryPlaces(context.Background(), intent.Record{Cuisine: "thai"}); err == nil {
		t.Fatal("expected error from store failure")
	}
}

func TestQueryEvents_FiltersAndConverts(t *testing.T) {
	t.Parallel()

	starts := time.Date(2026, 9, 5, 20, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []database.Event{{
		Name:     "Comedy Night",
		Category: nullStr("comedy"),
		Borough:  nullStr("Brooklyn"),
		StartsAt: starts,
		Price:    nullStr("$15"),
		Link:     nullStr("https://example.com/comedy"),
		Active:   true,
		VibeTags: nullStr("casual"),
	}}}
	e := newTestEngine(store)
	fixedNow := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixedNow }

	items, err := e.QueryEvents(context.Background(), intent.Record{
		Kind: intent.KindEvent, Category: "standup", Borough: "Brooklyn",
	})
	if err != nil {
		t.Fatalf("QueryEvents() error: %v", err)
	}

	if store.eventFilter.Category != "comedy" {
		t.Errorf("category filter = %q, want comedy (alias applied)", store.eventFilter.Category)
	}
	if !store.eventFilter.After.Equal(fixedNow) {
		t.Errorf("After = %v, want %v", store.eventFilter.After, fixedNow)
	}

	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	it := items[0]
	if it.Kind != intent.KindEvent {
		t.Errorf("Kind = %q, want event", it.Kind)
	}
	if it.StartsAt == nil || !it.StartsAt.Equal(starts) {
		t.Errorf("StartsAt = %v, want %v", it.StartsAt, starts)
	}
	if it.Price != "$15" || it.Link == "" {
		t.Errorf("event fields not carried: %+v", it)
	}
}
