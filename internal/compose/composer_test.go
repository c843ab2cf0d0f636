package compose_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nycscout/scout/internal/compose"
	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/intent"
	"github.com/nycscout/scout/internal/recommend"
)

type fakeFormatter struct {
	output      string
	err         error
	userContext string
	itemDigest  string
}

func (f *fakeFormatter) FormatRecommendations(_ context.Context, userContext, itemDigest string) (string, error) {
	f.userContext = userContext
	f.itemDigest = itemDigest
	return f.output, f.err
}

func newComposer(f *fakeFormatter) *compose.Composer {
	return compose.NewComposer(f, slog.Default(), config.MessagesConfig{
		NoResults: "Nothing matched, want to shift the vibe?",
	})
}

func TestCompose_SplitsDelimitedOutput(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{output: "Found a couple. ||| First: Ugly Baby. ||| Second: Sripraphai. ||| Want directions?"}
	c := newComposer(f)

	items := []recommend.Item{{Name: "Ugly Baby", Kind: intent.KindRestaurant}}
	messages, err := c.Compose(context.Background(), items, intent.Record{Cuisine: "thai", Borough: "Brooklyn"})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	want := []string{"Found a couple.", "First: Ugly Baby.", "Second: Sripraphai.", "Want directions?"}
	if len(messages) != len(want) {
		t.Fatalf("len(messages) = %d, want %d", len(messages), len(want))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, messages[i], want[i])
		}
	}
}

func TestCompose_DropsEmptyUnits(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{output: " ||| Hello. |||   ||| Bye. ||| "}
	c := newComposer(f)

	messages, err := c.Compose(context.Background(), []recommend.Item{{Name: "X"}}, intent.Record{})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(messages) != 2 || messages[0] != "Hello." || messages[1] != "Bye." {
		t.Errorf("messages = %q, want [Hello. Bye.]", messages)
	}
}

func TestCompose_CapsItemsFedToFormatter(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{output: "ok"}
	c := newComposer(f)

	items := []recommend.Item{{Name: "One"}, {Name: "Two"}, {Name: "Three"}}
	if _, err := c.Compose(context.Background(), items, intent.Record{}); err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	if strings.Contains(f.itemDigest, "Three") {
		t.Errorf("digest should cap at %d items, got: %s", compose.MaxItemsPerTurn, f.itemDigest)
	}
	if !strings.Contains(f.itemDigest, "One") || !strings.Contains(f.itemDigest, "Two") {
		t.Errorf("digest missing capped items: %s", f.itemDigest)
	}
}

func TestCompose_EmptyItemsYieldNoResultsMessage(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{}
	c := newComposer(f)

	messages, err := c.Compose(context.Background(), nil, intent.Record{})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(messages) != 1 || messages[0] != "Nothing matched, want to shift the vibe?" {
		t.Errorf("messages = %q, want the canned no-results line", messages)
	}
	if f.itemDigest != "" {
		t.Error("formatter should not be called for empty items")
	}
}

func TestCompose_UndelimitedOutputIsSingleMessage(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{output: "Just one long reply without any delimiter."}
	c := newComposer(f)

	messages, err := c.Compose(context.Background(), []recommend.Item{{Name: "X"}}, intent.Record{})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(messages) != 1 || messages[0] != "Just one long reply without any delimiter." {
		t.Errorf("messages = %q, want the raw output as one message", messages)
	}
}

func TestCompose_AllDelimiterOutputFallsBack(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{output: "||| ||| |||"}
	c := newComposer(f)

	messages, err := c.Compose(context.Background(), []recommend.Item{{Name: "X"}}, intent.Record{})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if len(messages) == 0 || messages[0] != compose.DefaultFramingLine {
		t.Errorf("messages = %q, want fallback framing first", messages)
	}
}

func TestCompose_FormatterErrorPropagates(t *testing.T) {
	t.Parallel()

	f := &fakeFormatter{err: errors.New("model unavailable")}
	c := newComposer(f)

	if _, err := c.Compose(context.Background(), []recommend.Item{{Name: "X"}}, intent.Record{}); err == nil {
		t.Fatal("expected error when formatter fails")
	}
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  intent.Record
		want string
	}{
		{
			name: "cuisine and borough",
			rec:  intent.Record{Cuisine: "thai", Borough: "Brooklyn"},
			want: `The user asked for: "thai in Brooklyn".`,
		},
		{
			name: "category falls back for subject",
			rec:  intent.Record{Category: "comedy", Borough: "Manhattan"},
			want: `The user asked for: "comedy in Manhattan".`,
		},
		{
			name: "missing borough defaults to NYC",
			rec:  intent.Record{Cuisine: "ramen"},
			want: `The user asked for: "ramen in NYC".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := compose.UserContext(tt.rec); got != tt.want {
				t.Errorf("UserContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemDigest(t *testing.T) {
	t.Parallel()

	starts := time.Date(2026, 9, 5, 20, 0, 0, 0, time.UTC)
	items := []recommend.Item{
		{Name: "Ugly Baby", Kind: intent.KindRestaurant, Tags: "thai", Location: "407 Smith St", PriceTier: "$$"},
		{Name: "Comedy Night", Kind: intent.KindEvent, Tags: "comedy", Location: "Brooklyn", StartsAt: &starts, Price: "$15", Link: "https://example.com"},
	}

	digest := compose.ItemDigest(items)
	lines := strings.Split(digest, "\n")
	if len(lines) != 2 {
		t.Fatalf("digest lines = %d, want 2", len(lines))
	}
	if lines[0] != "1. Name: Ugly Baby | Cuisine: thai | Address: 407 Smith St | Price: $$" {
		t.Errorf("place line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Date: Sat Sep 5, 8:00 PM") {
		t.Errorf("event line missing formatted date: %q", lines[1])
	}
	if !strings.Contains(lines[1], "Link: https://example.com") {
		t.Errorf("event line missing link: %q", lines[1])
	}
}

func TestItemDigest_MissingFieldsShowNA(t *testing.T) {
	t.Parallel()

	digest := compose.ItemDigest([]recommend.Item{{Name: "Mystery Spot", Kind: intent.KindRestaurant}})
	if !strings.Contains(digest, "Cuisine: N/A") || !strings.Contains(digest, "Price: N/A") {
		t.Errorf("digest = %q, want N/A placeholders", digest)
	}
}
