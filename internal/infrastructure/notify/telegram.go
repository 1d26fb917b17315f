package notify

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/config"
)

// TelegramChannel sends alerts to a Telegram chat through a bot. The bot
// client is created lazily on first send so a bad token degrades to failed
// outcomes instead of failing startup.
type TelegramChannel struct {
	token  string
	chatID int64
	logger *zap.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates the Telegram bot channel.
func NewTelegramChannel(cfg config.TelegramConfig, logger *zap.Logger) *TelegramChannel {
	return &TelegramChannel{
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		logger: logger.With(zap.String("channel", "telegram")),
	}
}

var _ Channel = (*TelegramChannel)(nil)

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Configured() bool { return c.token != "" && c.chatID != 0 }

func (c *TelegramChannel) getBot() (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(c.token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	c.bot = bot
	c.logger.Info("Telegram bot connected", zap.String("username", bot.Self.UserName))
	return bot, nil
}

// Send posts the alert text to the configured chat.
func (c *TelegramChannel) Send(ctx context.Context, event service.FlaggedEvent) error {
	bot, err := c.getBot()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(c.chatID, "🚨 "+alertSummary(event))
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}
