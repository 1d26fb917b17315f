package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/config"
)

// EmailChannel sends alerts through the Brevo transactional email API.
type EmailChannel struct {
	cfg    config.EmailConfig
	client *http.Client
	logger *zap.Logger
}

// NewEmailChannel creates the Brevo email channel.
func NewEmailChannel(cfg config.EmailConfig, logger *zap.Logger) *EmailChannel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brevo.com"
	}
	return &EmailChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With(zap.String("channel", "email")),
	}
}

var _ Channel = (*EmailChannel)(nil)

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.FromAddress != "" && c.cfg.ToAddress != ""
}

type emailParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type emailPayload struct {
	Sender      emailParty   `json:"sender"`
	To          []emailParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	TextContent string       `json:"textContent"`
}

// Send posts a transactional email with both HTML and plain-text bodies.
func (c *EmailChannel) Send(ctx context.Context, event service.FlaggedEvent) error {
	payload := emailPayload{
		Sender:      emailParty{Name: c.cfg.FromName, Email: c.cfg.FromAddress},
		To:          []emailParty{{Name: c.cfg.ToName, Email: c.cfg.ToAddress}},
		Subject:     fmt.Sprintf("Content Moderation Alert: request #%d", event.RequestID),
		HTMLContent: renderHTML(event),
		TextContent: alertSummary(event),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v3/smtp/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func renderHTML(event service.FlaggedEvent) string {
	var b strings.Builder
	b.WriteString("<h2>Content Flagged</h2>")
	b.WriteString("<table>")
	row := func(k, v string) {
		fmt.Fprintf(&b, "<tr><td><b>%s</b></td><td>%s</td></tr>", k, html.EscapeString(v))
	}
	row("Request", fmt.Sprintf("#%d", event.RequestID))
	row("Content type", string(event.ContentType))
	row("Classification", event.Classification)
	row("Confidence", fmt.Sprintf("%.2f", event.Confidence))
	if len(event.FlaggedCategories) > 0 {
		row("Categories", strings.Join(event.FlaggedCategories, ", "))
	}
	row("Reasoning", event.Reasoning)
	b.WriteString("</table>")
	return b.String()
}
