// Package instagram sends DMs through the Instagram Messaging API and paces
// multi-message replies so they read as human cadence rather than a burst.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nycscout/scout/internal/config"
)

// Sender delivers one message to one user. Satisfied by Client; narrowed out
// so the dispatcher can be exercised without network access.
type Sender interface {
	SendMessage(ctx context.Context, recipientID, text string) error
}

// Client talks to the Graph API messages endpoint with a page access token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageToken  string
	log        *slog.Logger
}

// NewClient creates an outbound Instagram client.
func NewClient(cfg config.InstagramConfig, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.SendTimeout},
		baseURL:    cfg.APIBaseURL,
		pageToken:  cfg.PageToken,
		log:        log.With("component", "instagram_client"),
	}
}

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage sends a single text message to an Instagram-scoped user ID.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) error {
	var payload sendRequest
	payload.Recipient.ID = recipientID
	payload.Message.Text = text

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode send payload: %w", err)
	}

	url := c.baseURL + "/me/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.pageToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("instagram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.ErrorContext(ctx, "Instagram send failed",
			"status", resp.StatusCode, "recipient", recipientID, "detail", string(detail))
		return fmt.Errorf("instagram send failed: status %d", resp.StatusCode)
	}

	c.log.DebugContext(ctx, "Message sent", "recipient", recipientID)
	return nil
}
