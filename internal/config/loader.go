package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from:
// 1. Default values
// 2. An optional config.yaml in the working directory (or configPath when set)
// 3. SCOUT_* environment variables
// and validates the result. Missing required secrets fail here, at startup,
// rather than per message.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults plus environment carry the load.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	// Secrets default to empty so viper knows the keys; environment-only
	// deployments would otherwise never bind them. Validation still rejects
	// empty required values.
	v.SetDefault("server.verify_token", "")
	v.SetDefault("server.app_secret", "")
	v.SetDefault("instagram.page_token", "")
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("instagram.api_base_url", DefaultInstagramAPIBaseURL)
	v.SetDefault("instagram.send_timeout", DefaultInstagramSendTimeout)
	v.SetDefault("instagram.pacing_min", DefaultInstagramPacingMin)
	v.SetDefault("instagram.pacing_max", DefaultInstagramPacingMax)

	v.SetDefault("gemini.model_name", DefaultGeminiModelName)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelaySeconds)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("rate_limit.max_requests", DefaultRateLimitMaxRequests)
	v.SetDefault("rate_limit.window", DefaultRateLimitWindow)

	v.SetDefault("recommend.max_results", DefaultRecommendMaxResults)
	v.SetDefault("recommend.fetch_limit", DefaultRecommendFetchLimit)

	v.SetDefault("retention.conversation_days", DefaultRetentionConversationDays)

	v.SetDefault("scheduler.tasks.conversation_retention.enabled", true)
	v.SetDefault("scheduler.tasks.conversation_retention.schedule", "0 30 4 * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 5 * * 0")
	// Safety valve only; expired windows already reset lazily per request.
	v.SetDefault("scheduler.tasks.ratelimit_reset.enabled", false)
	v.SetDefault("scheduler.tasks.ratelimit_reset.schedule", "")

	v.SetDefault("messages.welcome", DefaultMsgWelcome)
	v.SetDefault("messages.throttled", DefaultMsgThrottled)
	v.SetDefault("messages.no_results", DefaultMsgNoResults)
	v.SetDefault("messages.general_error", DefaultMsgError)
	v.SetDefault("messages.fallback_question", DefaultMsgFallbackQ)
}
