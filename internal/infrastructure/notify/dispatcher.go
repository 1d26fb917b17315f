// Package notify delivers alerts for flagged content over configured
// channels (Slack webhook, transactional email, Telegram bot). Channels
// fail independently: one channel's error never blocks another's delivery.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/config"
)

// Channel is a single notification transport.
type Channel interface {
	// Name is the channel identifier persisted with each attempt.
	Name() string

	// Configured reports whether the channel has the settings it needs.
	// Unconfigured channels are skipped, not failed.
	Configured() bool

	// Send delivers the alert. Only called when Configured() is true.
	Send(ctx context.Context, event service.FlaggedEvent) error
}

// Dispatcher fans a flagged event out to every channel concurrently and
// collects one outcome per channel.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

// NewDispatcher builds a dispatcher over the standard channel set.
func NewDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channels: []Channel{
			NewSlackChannel(cfg.Slack, logger),
			NewEmailChannel(cfg.Email, logger),
			NewTelegramChannel(cfg.Telegram, logger),
		},
		logger: logger.With(zap.String("component", "dispatcher")),
	}
}

// NewDispatcherWithChannels builds a dispatcher over an explicit channel
// set. Used by tests and custom wiring.
func NewDispatcherWithChannels(logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{channels: channels, logger: logger.With(zap.String("component", "dispatcher"))}
}

var _ service.NotificationDispatcher = (*Dispatcher)(nil)

// Dispatch sends the event to every channel in parallel. The returned map
// has exactly one entry per channel: sent, failed, or skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, event service.FlaggedEvent) map[string]entity.NotificationOutcome {
	outcomes := make(map[string]entity.NotificationOutcome, len(d.channels))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range d.channels {
		if !ch.Configured() {
			outcomes[ch.Name()] = entity.OutcomeSkipped
			continue
		}

		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			outcome := entity.OutcomeSent
			if err := d.send(ctx, ch, event); err != nil {
				outcome = entity.OutcomeFailed
				d.logger.Warn("Notification delivery failed",
					zap.String("channel", ch.Name()),
					zap.Uint("request_id", event.RequestID),
					zap.Error(err),
				)
			} else {
				d.logger.Info("Notification delivered",
					zap.String("channel", ch.Name()),
					zap.Uint("request_id", event.RequestID),
				)
			}

			mu.Lock()
			outcomes[ch.Name()] = outcome
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	return outcomes
}

// send wraps a channel send with panic recovery so a misbehaving channel
// degrades to a failed outcome instead of taking down the pipeline.
func (d *Dispatcher) send(ctx context.Context, ch Channel, event service.FlaggedEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panicked: %v", r)
		}
	}()
	return ch.Send(ctx, event)
}

// alertSummary renders the one-line alert text shared by plain-text channels.
func alertSummary(event service.FlaggedEvent) string {
	return fmt.Sprintf("Content flagged: request #%d (%s) classified %s with confidence %.2f. %s",
		event.RequestID, event.ContentType, event.Classification, event.Confidence, event.Reasoning)
}
