package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/webhook"
)

type capturedMessage struct {
	userKey string
	text    string
}

type fakeProcessor struct {
	messages chan capturedMessage
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{messages: make(chan capturedMessage, 16)}
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, userKey, text string) {
	f.messages <- capturedMessage{userKey: userKey, text: text}
}

func (f *fakeProcessor) next(t *testing.T) capturedMessage {
	t.Helper()
	select {
	case m := <-f.messages:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a processed message")
		return capturedMessage{}
	}
}

func (f *fakeProcessor) expectNone(t *testing.T) {
	t.Helper()
	select {
	case m := <-f.messages:
		t.Fatalf("unexpected message processed: %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestServer(t *testing.T, cfg config.ServerConfig, proc webhook.MessageProcessor) *httptest.Server {
	t.Helper()
	h := webhook.NewHandler(context.Background(), cfg, proc, slog.Default())
	srv := httptest.NewServer(h.Router(slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyHandshake(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	srv := newTestServer(t, config.ServerConfig{VerifyToken: "secret-token"}, proc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake echoes challenge",
			query:      "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=42abc",
			wantStatus: http.StatusOK,
			wantBody:   "42abc",
		},
		{
			name:       "wrong token rejected",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42abc",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrong mode rejected",
			query:      "hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=42abc",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := http.Get(srv.URL + "/webhook?" + tt.query)
			if err != nil {
				t.Fatalf("GET error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

const eventPayload = `{
	"object": "instagram",
	"entry": [{
		"id": "page-1",
		"time": 1756700000,
		"messaging": [{
			"sender": {"id": "ig-user-1"},
			"recipient": {"id": "page-1"},
			"timestamp": 1756700000,
			"message": {"mid": "m1", "text": "thai in brooklyn"}
		}]
	}]
}`

func TestEvents_DispatchesTextMessages(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	srv := newTestServer(t, config.ServerConfig{VerifyToken: "tok"}, proc)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(eventPayload))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "EVENT_RECEIVED" {
		t.Errorf("body = %q, want EVENT_RECEIVED", body)
	}

	got := proc.next(t)
	if got.userKey != "ig-user-1" || got.text != "thai in brooklyn" {
		t.Errorf("processed = %+v, want sender and text from the payload", got)
	}
}

func TestEvents_SkipsEchoesAndNonText(t *testing.T) {
	t.Parallel()

	payload := `{
		"object": "instagram",
		"entry": [{
			"messaging": [
				{"sender": {"id": "u1"}, "message": {"mid": "m1", "text": "hi", "is_echo": true}},
				{"sender": {"id": "u2"}},
				{"sender": {"id": "u3"}, "message": {"mid": "m3", "text": "   "}}
			]
		}]
	}`

	proc := newFakeProcessor()
	srv := newTestServer(t, config.ServerConfig{VerifyToken: "tok"}, proc)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	resp.Body.Close()

	proc.expectNone(t)
}

func TestEvents_SignatureChecking(t *testing.T) {
	t.Parallel()

	const secret = "app-secret"
	proc := newFakeProcessor()
	srv := newTestServer(t, config.ServerConfig{VerifyToken: "tok", AppSecret: secret}, proc)

	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(body))
		return "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("valid signature accepted", func(t *testing.T) {
		t.Parallel()

		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(eventPayload))
		req.Header.Set("X-Hub-Signature-256", sign(eventPayload))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		proc.next(t)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(eventPayload))
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		t.Parallel()

		tampered := strings.Replace(eventPayload, "thai", "sushi", 1)
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(tampered))
		req.Header.Set("X-Hub-Signature-256", sign(eventPayload))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})
}

func TestEvents_MalformedJSONRejected(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	srv := newTestServer(t, config.ServerConfig{VerifyToken: "tok"}, proc)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
