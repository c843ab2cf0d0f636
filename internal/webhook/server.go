// Package webhook receives Instagram messaging events from Meta: the GET
// subscription handshake and the POST event feed. Inbound events are verified,
// acknowledged immediately, and processed asynchronously so the platform never
// waits on a Gemini call.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/logger"
)

// maxBodyBytes caps the inbound payload size.
const maxBodyBytes = 1 << 20

// MessageProcessor handles one admitted inbound message.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, userKey, text string)
}

// Handler serves the webhook endpoints.
type Handler struct {
	log         *slog.Logger
	verifyToken string
	appSecret   string
	processor   MessageProcessor

	// baseCtx outlives individual requests so async processing is not cut off
	// by the platform closing the connection after the 200.
	baseCtx context.Context
}

// NewHandler creates the webhook handler. baseCtx should be the application
// lifecycle context.
func NewHandler(baseCtx context.Context, cfg config.ServerConfig, processor MessageProcessor, log *slog.Logger) *Handler {
	return &Handler{
		log:         log.With("component", "webhook"),
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		processor:   processor,
		baseCtx:     baseCtx,
	}
}

// Router builds the HTTP routes for the webhook surface.
func (h *Handler) Router(log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(log))

	r.Get("/webhook", h.handleVerify)
	r.Post("/webhook", h.handleEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// handleVerify answers the Meta subscription handshake: echo hub.challenge
// when the mode and token match, 403 otherwise.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.log.InfoContext(r.Context(), "Webhook verification succeeded")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	h.log.WarnContext(r.Context(), "Webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// handleEvents acknowledges the delivery immediately and hands each text
// message to the processor on its own goroutine.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r.Header.Get("X-Hub-Signature-256"), body) {
		h.log.WarnContext(r.Context(), "Webhook signature mismatch, payload dropped")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.WarnContext(r.Context(), "Webhook payload unparseable", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Acknowledge before processing; Meta retries deliveries that do not get
	// a prompt 200.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("EVENT_RECEIVED"))

	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			h.dispatch(event)
		}
	}
}

// dispatch filters one messaging event and starts its turn.
func (h *Handler) dispatch(event MessagingEvent) {
	if event.Message == nil || event.Message.IsEcho {
		return
	}
	text := strings.TrimSpace(event.Message.Text)
	if text == "" || event.Sender.ID == "" {
		return
	}

	go h.processor.ProcessMessage(h.baseCtx, event.Sender.ID, text)
}

// verifySignature checks the X-Hub-Signature-256 HMAC. An empty configured
// secret disables checking; a configured secret makes the header mandatory.
func (h *Handler) verifySignature(header string, body []byte) bool {
	if h.appSecret == "" {
		return true
	}

	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
