// Package compose turns query results into the ordered list of outbound DM
// strings. Prose comes from the formatting model; this package owns the
// structured digest fed to it, the delimiter splitting of its output, and the
// hard caps that keep a reply readable on a DM surface.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/gemini"
	"github.com/nycscout/scout/internal/intent"
	"github.com/nycscout/scout/internal/recommend"
)

// MaxItemsPerTurn caps how many recommendations one reply may carry. Each
// item costs up to two message units, plus one framing line and one closing
// prompt.
const MaxItemsPerTurn = 2

// DefaultFramingLine opens the fallback reply when the model output could not
// be split into message units.
const DefaultFramingLine = "Here are a few that feel right."

// Formatter is the slice of the AI client the composer needs.
type Formatter interface {
	FormatRecommendations(ctx context.Context, userContext, itemDigest string) (string, error)
}

var _ Formatter = (gemini.Client)(nil)

// Composer builds outbound message sequences from recommendation items.
type Composer struct {
	ai        Formatter
	log       *slog.Logger
	noResults string
}

// NewComposer creates a composer that delegates prose to the given formatter.
func NewComposer(ai Formatter, log *slog.Logger, messages config.MessagesConfig) *Composer {
	return &Composer{
		ai:        ai,
		log:       log.With("component", "composer"),
		noResults: messages.NoResults,
	}
}

// NoResults returns the single-message sequence for the empty-result terminal
// state.
func (c *Composer) NoResults() []string {
	return []string{c.noResults}
}

// Compose turns items into an ordered message sequence. Empty items yield the
// canned no-results message; a formatter output that cannot be split yields a
// minimal two-message fallback. The item cap is enforced here regardless of
// how many results the query engine returned.
func (c *Composer) Compose(ctx context.Context, items []recommend.Item, rec intent.Record) ([]string, error) {
	if len(items) == 0 {
		return c.NoResults(), nil
	}

	if len(items) > MaxItemsPerTurn {
		items = items[:MaxItemsPerTurn]
	}

	raw, err := c.ai.FormatRecommendations(ctx, UserContext(rec), ItemDigest(items))
	if err != nil {
		return nil, fmt.Errorf("failed to format recommendations: %w", err)
	}

	messages := SplitMessages(raw)
	if len(messages) == 0 {
		c.log.WarnContext(ctx, "Formatter output had no usable message units, using fallback framing")
		fallback := []string{DefaultFramingLine}
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			fallback = append(fallback, trimmed)
		}
		return fallback, nil
	}

	return messages, nil
}

// SplitMessages splits formatter output on the delimiter token, trims each
// unit, and drops empties.
func SplitMessages(raw string) []string {
	parts := strings.Split(raw, gemini.MessageDelimiter)
	messages := make([]string, 0, len(parts))
	for _, p := range parts {
		if m := strings.TrimSpace(p); m != "" {
			messages = append(messages, m)
		}
	}
	return messages
}

// UserContext is the one-line summary of the request fed to the formatter.
func UserContext(rec intent.Record) string {
	subject := rec.Cuisine
	if subject == "" {
		subject = rec.Category
	}
	where := rec.Borough
	if where == "" {
		where = "NYC"
	}
	return fmt.Sprintf("The user asked for: %q.", subject+" in "+where)
}

// ItemDigest renders the structured per-item summary fed to the formatter.
func ItemDigest(items []recommend.Item) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		if item.Kind == intent.KindEvent {
			date := ""
			if item.StartsAt != nil {
				date = item.StartsAt.Format("Mon Jan 2, 3:04 PM")
			}
			lines = append(lines, fmt.Sprintf("%d. Name: %s | Category: %s | Location: %s | Date: %s | Price: %s | Link: %s",
				i+1, item.Name, orNA(item.Tags), orNA(item.Location), orNA(date), orNA(item.Price), orNA(item.Link)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. Name: %s | Cuisine: %s | Address: %s | Price: %s",
			i+1, item.Name, orNA(item.Tags), orNA(item.Location), orNA(item.PriceTier)))
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
