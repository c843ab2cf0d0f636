// Package gemini implements integration with Google's Gemini AI API. It hosts
// the three model calls the concierge depends on: intent classification,
// recommendation formatting, and the pattern-aware greeting.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/intent"
)

// Client defines the interface for AI operations used throughout the
// application.
type Client interface {
	// ParseIntent classifies a message against up to three prior conversation
	// rows (newest first). Malformed model output degrades to the canonical
	// fallback intent and is never an error; only the API call itself can fail.
	ParseIntent(ctx context.Context, message string, prior []database.Conversation) (intent.Record, error)

	// FormatRecommendations turns a structured item digest into delimited DM
	// prose. userContext is a one-line summary of what the user asked for.
	FormatRecommendations(ctx context.Context, userContext, itemDigest string) (string, error)

	// GenerateGreeting produces one short greeting line from historical
	// preferences. topCuisine must already be blanked by the caller when it
	// conflicts with the current request.
	GenerateGreeting(ctx context.Context, topBorough, topCuisine, currentCuisine string) (string, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	timeout       time.Duration
	maxRetries    int
	retryDelay    time.Duration
}

// NewClient creates a new Gemini AI client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:   gi,
		log:           logger,
		contentConfig: baseCfg,
		modelName:     cfg.ModelName,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	// Every call gets a bounded deadline so a hung model call cannot stall a
	// turn indefinitely.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry",
			"attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call", "delay", c.retryDelay, "code", apiErr.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

// BuildContextDigest serializes prior conversation rows (newest first) into a
// compact oldest-first block: the user's text, the filters gathered so far,
// and the bot's reply. This lets the model carry forward established filters
// without re-asking.
func BuildContextDigest(prior []database.Conversation) string {
	if len(prior) == 0 {
		return ""
	}

	lines := make([]string, 0, len(prior))
	for _, conv := range prior {
		var rec intent.Record
		_ = json.Unmarshal([]byte(conv.IntentJSON), &rec)

		var filters []string
		if rec.Kind != "" && rec.Kind != intent.KindUnclear {
			filters = append(filters, "type="+string(rec.Kind))
		}
		if rec.Cuisine != "" {
			filters = append(filters, "cuisine="+rec.Cuisine)
		}
		if rec.Category != "" {
			filters = append(filters, "category="+rec.Category)
		}
		if rec.Borough != "" {
			filters = append(filters, "borough="+rec.Borough)
		}
		if rec.PriceIntent != "" {
			filters = append(filters, "price="+rec.PriceIntent)
		}
		if rec.DateIntent != "" {
			filters = append(filters, "date="+rec.DateIntent)
		}

		reply := conv.BotReply
		if reply == "" {
			reply = "N/A"
		}
		lines = append(lines, fmt.Sprintf("User said: %q -> Filters gathered so far: [%s] -> Bot responded: %s",
			conv.RawMessage, strings.Join(filters, ", "), reply))
	}

	// Rows arrive newest first; the prompt reads oldest first.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	return "\n\nPRIOR CONVERSATION CONTEXT (oldest first):\n" + strings.Join(lines, "\n")
}

// priorFromConversations extracts the most recent turn's intent and whether a
// question was asked, for the message-level guards.
func priorFromConversations(prior []database.Conversation) *intent.Prior {
	if len(prior) == 0 {
		return nil
	}

	latest := prior[0]
	var rec intent.Record
	if err := json.Unmarshal([]byte(latest.IntentJSON), &rec); err != nil {
		return nil
	}
	return &intent.Prior{
		Record:        rec,
		QuestionAsked: latest.ClarifyingQuestionSent,
	}
}

func (c *sdkClient) ParseIntent(ctx context.Context, message string, prior []database.Conversation) (intent.Record, error) {
	c.log.DebugContext(ctx, "Classifying intent", "prior_count", len(prior))

	prompt := ScoutSystemInstruction + BuildContextDigest(prior) + "\n\nUSER MESSAGE:\n" + fmt.Sprintf("%q", message)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	copyCfg := *c.contentConfig
	copyCfg.ResponseMIMEType = "application/json"

	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini intent classification call failed", "error", err)
		return intent.Fallback(), fmt.Errorf("intent classification failed: %w", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		// Unusable output is a parse failure, not a call failure: degrade to
		// the canonical fallback without surfacing an error.
		c.log.WarnContext(ctx, "Gemini intent response unusable, using fallback intent", "error", err)
		return intent.Fallback(), nil
	}

	rec, parseErr := intent.Parse(text)
	if parseErr != nil {
		c.log.WarnContext(ctx, "Failed to parse intent JSON, using fallback intent",
			"error", parseErr, "response_text", text)
	}

	return intent.ApplyMessageGuards(rec, message, priorFromConversations(prior)), nil
}

func (c *sdkClient) FormatRecommendations(ctx context.Context, userContext, itemDigest string) (string, error) {
	c.log.DebugContext(ctx, "Formatting recommendations")

	prompt := FormatInstruction + "\n\n" + userContext + "\n\nRECOMMENDATIONS DATA:\n" + itemDigest
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	copyCfg := *c.contentConfig
	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini formatting call failed", "error", err)
		return "", fmt.Errorf("recommendation formatting failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

func (c *sdkClient) GenerateGreeting(ctx context.Context, topBorough, topCuisine, currentCuisine string) (string, error) {
	var sb strings.Builder
	sb.WriteString(GreetingInstruction)
	sb.WriteString("\n\nUser history:")
	if topBorough != "" {
		sb.WriteString(" Likes " + topBorough + ".")
	}
	if topCuisine != "" {
		sb.WriteString(" Often asks for " + topCuisine + ".")
	}
	sb.WriteString("\nCurrent request: ")
	if currentCuisine != "" {
		sb.WriteString("Asking for " + currentCuisine + ".")
	} else {
		sb.WriteString("General request.")
	}

	contents := []*genai.Content{genai.NewContentFromText(sb.String(), genai.RoleUser)}

	copyCfg := *c.contentConfig
	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini greeting call failed", "error", err)
		return "", fmt.Errorf("greeting generation failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("request blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("model returned no content, finish reason: %s", finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned empty text")
	}
	return text, nil
}
