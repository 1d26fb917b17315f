package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/infrastructure/config"
)

func testLogger() *zap.Logger { return zap.NewNop() }

func TestEmailChannelSend(t *testing.T) {
	var got emailPayload
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/smtp/email" {
			http.NotFound(w, r)
			return
		}
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode email payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewEmailChannel(config.EmailConfig{
		APIKey:      "brevo-key",
		BaseURL:     srv.URL,
		FromName:    "Moderator",
		FromAddress: "alerts@example.com",
		ToName:      "Admin",
		ToAddress:   "admin@example.com",
	}, testLogger())

	if !c.Configured() {
		t.Fatal("fully configured email channel must report configured")
	}
	if err := c.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if apiKey != "brevo-key" {
		t.Fatalf("api-key header: got %q", apiKey)
	}
	if got.Sender.Email != "alerts@example.com" || len(got.To) != 1 || got.To[0].Email != "admin@example.com" {
		t.Fatalf("unexpected addressing: %+v", got)
	}
	if !strings.Contains(got.Subject, "#42") {
		t.Fatalf("subject missing request id: %s", got.Subject)
	}
	if got.HTMLContent == "" || got.TextContent == "" {
		t.Fatal("both HTML and text bodies must be set")
	}
}

func TestEmailChannelAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewEmailChannel(config.EmailConfig{
		APIKey:      "bad-key",
		BaseURL:     srv.URL,
		FromAddress: "alerts@example.com",
		ToAddress:   "admin@example.com",
	}, testLogger())

	if err := c.Send(context.Background(), testEvent()); err == nil {
		t.Fatal("expected error on API failure")
	}
}

func TestEmailChannelConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.EmailConfig
		want bool
	}{
		{"empty", config.EmailConfig{}, false},
		{"missing addresses", config.EmailConfig{APIKey: "k"}, false},
		{"complete", config.EmailConfig{APIKey: "k", FromAddress: "a@b.c", ToAddress: "d@e.f"}, true},
	}
	for _, tc := range cases {
		c := NewEmailChannel(tc.cfg, testLogger())
		if c.Configured() != tc.want {
			t.Fatalf("%s: Configured() = %v, want %v", tc.name, c.Configured(), tc.want)
		}
	}
}

func TestTelegramChannelConfigured(t *testing.T) {
	if NewTelegramChannel(config.TelegramConfig{}, testLogger()).Configured() {
		t.Fatal("telegram channel without token must not report configured")
	}
	if NewTelegramChannel(config.TelegramConfig{BotToken: "t"}, testLogger()).Configured() {
		t.Fatal("telegram channel without chat id must not report configured")
	}
	if !NewTelegramChannel(config.TelegramConfig{BotToken: "t", ChatID: 7}, testLogger()).Configured() {
		t.Fatal("telegram channel with token and chat id must report configured")
	}
}
