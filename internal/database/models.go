package database

import (
	"database/sql"
	"time"
)

// Conversation is one append-only log row per processed inbound message. It
// captures the raw text, the classified intent (JSON-encoded), and the reply
// that went out. Rows are never updated; an external retention task deletes
// them in bulk by created_at.
type Conversation struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	UserKey                string  `db:"user_key"`
	RawMessage             string  `db:"raw_message"`
	IntentJSON             string  `db:"intent_json"`
	Confidence             float64 `db:"confidence"`
	ClarifyingQuestionSent bool    `db:"clarifying_question_sent"`
	RecommendedJSON        string  `db:"recommended_json"`
	BotReply               string  `db:"bot_reply"`
}

// UserProfile accumulates soft per-user preference signals from successful
// recommendations. The frequency maps are JSON-encoded (key -> count) and only
// ever grow; budget_bias is a damped running average over the 1-4 price scale.
type UserProfile struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	UserKey          string    `db:"user_key"`
	BoroughCounts    string    `db:"borough_counts"`
	CuisineCounts    string    `db:"cuisine_counts"`
	CategoryCounts   string    `db:"category_counts"`
	BudgetBias       float64   `db:"budget_bias"`
	InteractionCount int       `db:"interaction_count"`
	LastInteraction  time.Time `db:"last_interaction"`
}

// RateLimit tracks one fixed request window per user key. Updated on every
// inbound message before any other processing.
type RateLimit struct {
	UserKey      string    `db:"user_key"`
	RequestCount int       `db:"request_count"`
	WindowStart  time.Time `db:"window_start"`
	LastRequest  time.Time `db:"last_request"`
}

// Place is a read-only restaurant document populated by the ingestion
// pipeline. Upstream data is not schema-strict, so everything beyond the name
// is nullable.
type Place struct {
	ID          uint            `db:"id"`
	Name        string          `db:"name"`
	Address     sql.NullString  `db:"address"`
	CuisineTags sql.NullString  `db:"cuisine_tags"`
	PriceTier   sql.NullString  `db:"price_tier"`
	Rating      sql.NullFloat64 `db:"rating"`
	VibeTags    sql.NullString  `db:"vibe_tags"`
}

// Event is a read-only event document populated by the ingestion pipeline.
type Event struct {
	ID       uint           `db:"id"`
	Name     string         `db:"name"`
	Category sql.NullString `db:"category"`
	Borough  sql.NullString `db:"borough"`
	StartsAt time.Time      `db:"starts_at"`
	Price    sql.NullString `db:"price"`
	Link     sql.NullString `db:"link"`
	Active   bool           `db:"active"`
	VibeTags sql.NullString `db:"vibe_tags"`
}
