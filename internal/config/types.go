// Package config provides configuration loading, validation, and management
// for the Scout application. It layers defaults, an optional config.yaml, and
// SCOUT_* environment variables, then validates the result.
package config

import "time"

// Config defines the application configuration for all components of the
// Scout system: logging, webhook server, Instagram delivery, Gemini
// integration, persistence, rate limiting, recommendations, and scheduled
// maintenance.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Retention RetentionConfig `mapstructure:"retention"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds the webhook HTTP listener settings. VerifyToken is the
// value Meta echoes back during the subscription handshake; AppSecret signs
// inbound payloads (signature checking is skipped when it is empty).
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"         validate:"required"`
	VerifyToken     string        `mapstructure:"verify_token" validate:"required"`
	AppSecret       string        `mapstructure:"app_secret"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=1m"`
}

// InstagramConfig holds outbound Graph API delivery settings.
type InstagramConfig struct {
	PageToken   string        `mapstructure:"page_token" validate:"required"`
	APIBaseURL  string        `mapstructure:"api_base_url" validate:"url"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s,max=1m"`

	// Pacing delay bounds between consecutive messages of one reply.
	PacingMin time.Duration `mapstructure:"pacing_min" validate:"min=0"`
	PacingMax time.Duration `mapstructure:"pacing_max" validate:"gtefield=PacingMin"`
}

// GeminiConfig holds settings for the Gemini API client.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	ModelName         string        `mapstructure:"model_name" validate:"required"`
	Temperature       float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=1s,max=2m"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=5"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=1,max=30"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RateLimitConfig bounds how often a single user may be processed.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"min=1"`
	Window      time.Duration `mapstructure:"window" validate:"min=1m"`
}

// RecommendConfig bounds the query engine output.
type RecommendConfig struct {
	MaxResults int `mapstructure:"max_results" validate:"min=1,max=4"`
	FetchLimit int `mapstructure:"fetch_limit" validate:"min=1,max=50,gtefield=MaxResults"`
}

// RetentionConfig controls how long conversation logs are kept.
type RetentionConfig struct {
	ConversationDays int `mapstructure:"conversation_days" validate:"min=1"`
}

// MessagesConfig holds the canned user-facing lines. Wording is configurable;
// the processing contract only cares that each line exists.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"           validate:"required"`
	Throttled        string `mapstructure:"throttled"         validate:"required"`
	NoResults        string `mapstructure:"no_results"        validate:"required"`
	GeneralError     string `mapstructure:"general_error"     validate:"required"`
	FallbackQuestion string `mapstructure:"fallback_question" validate:"required"`
}

// SchedulerConfig lists the scheduled maintenance tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
