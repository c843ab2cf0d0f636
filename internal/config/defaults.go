package config

import "time"

// Default values for optional configuration parameters. Required secrets
// (verify token, page token, Gemini API key) have no defaults on purpose.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultServerAddr            = ":8080"
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultInstagramAPIBaseURL  = "https://graph.facebook.com/v21.0"
	DefaultInstagramSendTimeout = 10 * time.Second
	DefaultInstagramPacingMin   = 400 * time.Millisecond
	DefaultInstagramPacingMax   = 900 * time.Millisecond

	DefaultGeminiModelName         = "gemini-2.5-flash-lite"
	DefaultGeminiTemperature       = float32(0.7)
	DefaultGeminiTimeout           = 8 * time.Second
	DefaultGeminiMaxRetries        = 1
	DefaultGeminiRetryDelaySeconds = 2

	DefaultDBPath = "scout.db"

	DefaultRateLimitMaxRequests = 30
	DefaultRateLimitWindow      = time.Hour

	DefaultRecommendMaxResults = 3
	DefaultRecommendFetchLimit = 10

	DefaultRetentionConversationDays = 30

	DefaultMsgWelcome   = "Hey — tell me what you're in the mood for. Food, something happening tonight, or just an idea?"
	DefaultMsgThrottled = "Give me a moment before we look again — try again shortly."
	DefaultMsgNoResults = "I couldn't find something that fits that perfectly yet. Want to try a nearby neighborhood or shift the vibe a little?"
	DefaultMsgError     = "Something's shifting on my end. Give me one second."
	DefaultMsgFallbackQ = "Hey — tell me what you're in the mood for. Food, something happening tonight, or just an idea?"
)
