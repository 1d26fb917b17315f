package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/config"
)

// SlackChannel posts Block Kit alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewSlackChannel creates the Slack webhook channel.
func NewSlackChannel(cfg config.SlackConfig, logger *zap.Logger) *SlackChannel {
	return &SlackChannel{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(zap.String("channel", "slack")),
	}
}

var _ Channel = (*SlackChannel)(nil)

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Configured() bool { return c.webhookURL != "" }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// Send posts the alert as a header plus a field section.
func (c *SlackChannel) Send(ctx context.Context, event service.FlaggedEvent) error {
	fields := []slackText{
		{Type: "mrkdwn", Text: fmt.Sprintf("*Request:*\n#%d", event.RequestID)},
		{Type: "mrkdwn", Text: fmt.Sprintf("*Content type:*\n%s", event.ContentType)},
		{Type: "mrkdwn", Text: fmt.Sprintf("*Classification:*\n%s", event.Classification)},
		{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:*\n%.2f", event.Confidence)},
	}
	if len(event.FlaggedCategories) > 0 {
		fields = append(fields, slackText{
			Type: "mrkdwn",
			Text: "*Categories:*\n" + strings.Join(event.FlaggedCategories, ", "),
		})
	}

	msg := slackMessage{
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "🚨 Content Flagged"}},
			{Type: "section", Fields: fields},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Reasoning:*\n" + event.Reasoning}},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
