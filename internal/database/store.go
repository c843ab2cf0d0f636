package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// PlaceFilter narrows the places query. Empty fields skip their clause.
// Location and Cuisine are case-insensitive containment matches against free
// text; PriceTier is an exact tier symbol ("$".."$$$$").
type PlaceFilter struct {
	Location  string
	Cuisine   string
	PriceTier string
}

// EventFilter narrows the events query. Only active events starting at or
// after After are considered; Location and Category are containment matches.
type EventFilter struct {
	Location string
	Category string
	After    time.Time
}

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveConversation appends a new conversation log row.
	SaveConversation(ctx context.Context, conv *Conversation) error

	// GetRecentConversations retrieves the most recent 'limit' conversation
	// rows for a user key, newest first.
	GetRecentConversations(ctx context.Context, userKey string, limit int) ([]Conversation, error)

	// DeleteConversationsBefore bulk-deletes conversation rows created before
	// the cutoff. Returns the number of rows removed.
	DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// GetUserProfile retrieves a user profile by user key. Returns nil, nil if not found.
	GetUserProfile(ctx context.Context, userKey string) (*UserProfile, error)

	// SaveUserProfile inserts or updates a user profile keyed by user key.
	SaveUserProfile(ctx context.Context, profile *UserProfile) error

	// GetRateLimit retrieves the rate-limit record for a user key. Returns nil, nil if not found.
	GetRateLimit(ctx context.Context, userKey string) (*RateLimit, error)

	// SaveRateLimit inserts or updates the rate-limit record for a user key.
	SaveRateLimit(ctx context.Context, rec *RateLimit) error

	// ResetRateLimits deletes all rate-limit records. Returns the number removed.
	ResetRateLimits(ctx context.Context) (int64, error)

	// QueryPlaces returns up to 'limit' places matching the filter, sorted by
	// rating descending.
	QueryPlaces(ctx context.Context, filter PlaceFilter, limit int) ([]Place, error)

	// QueryEvents returns up to 'limit' events matching the filter, sorted by
	// start time ascending.
	QueryEvents(ctx context.Context, filter EventFilter, limit int) ([]Event, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("cannot save nil conversation")
	}
	if conv.UserKey == "" {
		return fmt.Errorf("conversation must have a non-empty user_key")
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO conversations (user_key, raw_message, intent_json, confidence,
                                   clarifying_question_sent, recommended_json, bot_reply, created_at)
        VALUES (:user_key, :raw_message, :intent_json, :confidence,
                :clarifying_question_sent, :recommended_json, :bot_reply, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, conv)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving conversation", "user_key", conv.UserKey, "error", err)
		return fmt.Errorf("failed to save conversation for user %s: %w", conv.UserKey, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		conv.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving conversation",
			"user_key", conv.UserKey, "error", err)
	}

	s.logger.DebugContext(ctx, "Conversation saved successfully",
		"user_key", conv.UserKey, "conversation_id", conv.ID)
	return nil
}

func (s *sqlxStore) GetRecentConversations(ctx context.Context, userKey string, limit int) ([]Conversation, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}
	if limit <= 0 {
		limit = 3
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var conversations []Conversation
	query := `
        SELECT id, created_at, user_key, raw_message, intent_json, confidence,
               clarifying_question_sent, recommended_json, bot_reply
        FROM conversations
        WHERE user_key = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &conversations, query, userKey, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent conversations", "user_key", userKey, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent conversations for user %s: %w", userKey, err)
	}

	s.logger.DebugContext(ctx, "Fetched recent conversations", "user_key", userKey, "count", len(conversations))
	return conversations, nil
}

func (s *sqlxStore) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE created_at < ?`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting old conversations", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to delete conversations before %s: %w", cutoff, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted old conversations", "cutoff", cutoff, "count", count)
	return count, nil
}

func (s *sqlxStore) GetUserProfile(ctx context.Context, userKey string) (*UserProfile, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile UserProfile
	query := `SELECT id, created_at, updated_at, user_key, borough_counts, cuisine_counts,
	                 category_counts, budget_bias, interaction_count, last_interaction
	          FROM user_profiles WHERE user_key = ?`

	err := s.db.GetContext(ctx, &profile, query, userKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Not found is expected for first-time users, not an error.
		s.logger.DebugContext(ctx, "No user profile found", "user_key", userKey)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "user_key", userKey, "error", err)
		return nil, fmt.Errorf("failed to get user profile for user %s: %w", userKey, err)
	}

	return &profile, nil
}

func (s *sqlxStore) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("cannot save nil user profile")
	}
	if profile.UserKey == "" {
		return fmt.Errorf("user profile must have a non-empty user_key")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving user profile",
			"user_key", profile.UserKey, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM user_profiles WHERE user_key = ? LIMIT 1`, profile.UserKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check if profile exists for user %s: %w", profile.UserKey, err)
	}

	var result sql.Result
	if exists {
		query := `
			UPDATE user_profiles SET
				borough_counts = :borough_counts,
				cuisine_counts = :cuisine_counts,
				category_counts = :category_counts,
				budget_bias = :budget_bias,
				interaction_count = :interaction_count,
				last_interaction = :last_interaction,
				updated_at = :updated_at
			WHERE user_key = :user_key
		`
		result, err = tx.NamedExecContext(ctx, query, profile)
	} else {
		query := `
			INSERT INTO user_profiles (
				user_key, borough_counts, cuisine_counts, category_counts,
				budget_bias, interaction_count, last_interaction, created_at, updated_at
			) VALUES (
				:user_key, :borough_counts, :cuisine_counts, :category_counts,
				:budget_bias, :interaction_count, :last_interaction, :created_at, :updated_at
			)
		`
		result, err = tx.NamedExecContext(ctx, query, profile)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile", "user_key", profile.UserKey, "error", err)
		return fmt.Errorf("failed to save user profile for user %s: %w", profile.UserKey, err)
	}

	if !exists {
		if id, err := result.LastInsertId(); err == nil {
			profile.ID = uint(id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "User profile saved successfully", "user_key", profile.UserKey)
	return nil
}

func (s *sqlxStore) GetRateLimit(ctx context.Context, userKey string) (*RateLimit, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}

	var rec RateLimit
	query := `SELECT user_key, request_count, window_start, last_request
	          FROM rate_limits WHERE user_key = ?`

	err := s.db.GetContext(ctx, &rec, query, userKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting rate limit record", "user_key", userKey, "error", err)
		return nil, fmt.Errorf("failed to get rate limit for user %s: %w", userKey, err)
	}

	return &rec, nil
}

func (s *sqlxStore) SaveRateLimit(ctx context.Context, rec *RateLimit) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil rate limit record")
	}
	if rec.UserKey == "" {
		return fmt.Errorf("rate limit record must have a non-empty user_key")
	}

	query := `
		INSERT INTO rate_limits (user_key, request_count, window_start, last_request)
		VALUES (:user_key, :request_count, :window_start, :last_request)
		ON CONFLICT (user_key) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			last_request = excluded.last_request;
	`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		s.logger.ErrorContext(ctx, "Error saving rate limit record", "user_key", rec.UserKey, "error", err)
		return fmt.Errorf("failed to save rate limit for user %s: %w", rec.UserKey, err)
	}
	return nil
}

func (s *sqlxStore) ResetRateLimits(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error resetting rate limits", "error", err)
		return 0, fmt.Errorf("failed to reset rate limits: %w", err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Reset all rate limits", "count", count)
	return count, nil
}

func (s *sqlxStore) QueryPlaces(ctx context.Context, filter PlaceFilter, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, name, address, cuisine_tags, price_tier, rating, vibe_tags
	                FROM places WHERE 1=1`)
	args := []any{}

	// Containment over exact match: upstream address and tag data is free text
	// with inconsistent casing and embedded venue names.
	if filter.Location != "" {
		sb.WriteString(` AND address LIKE '%' || ? || '%' COLLATE NOCASE`)
		args = append(args, filter.Location)
	}
	if filter.Cuisine != "" {
		sb.WriteString(` AND cuisine_tags LIKE '%' || ? || '%' COLLATE NOCASE`)
		args = append(args, filter.Cuisine)
	}
	if filter.PriceTier != "" {
		sb.WriteString(` AND price_tier = ?`)
		args = append(args, filter.PriceTier)
	}

	sb.WriteString(` ORDER BY rating DESC LIMIT ?;`)
	args = append(args, limit)

	var places []Place
	if err := s.db.SelectContext(ctx, &places, sb.String(), args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying places",
			"location", filter.Location, "cuisine", filter.Cuisine, "error", err)
		return nil, fmt.Errorf("failed to query places: %w", err)
	}

	s.logger.DebugContext(ctx, "Queried places", "count", len(places),
		"location", filter.Location, "cuisine", filter.Cuisine, "price_tier", filter.PriceTier)
	return places, nil
}

func (s *sqlxStore) QueryEvents(ctx context.Context, filter EventFilter, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, name, category, borough, starts_at, price, link, active, vibe_tags
	                FROM events WHERE active = 1 AND starts_at >= ?`)
	args := []any{filter.After}

	if filter.Location != "" {
		sb.WriteString(` AND borough LIKE '%' || ? || '%' COLLATE NOCASE`)
		args = append(args, filter.Location)
	}
	if filter.Category != "" {
		sb.WriteString(` AND category LIKE '%' || ? || '%' COLLATE NOCASE`)
		args = append(args, filter.Category)
	}

	sb.WriteString(` ORDER BY starts_at ASC LIMIT ?;`)
	args = append(args, limit)

	var events []Event
	if err := s.db.SelectContext(ctx, &events, sb.String(), args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying events",
			"location", filter.Location, "category", filter.Category, "error", err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	s.logger.DebugContext(ctx, "Queried events", "count", len(events),
		"location", filter.Location, "category", filter.Category)
	return events, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
