package monitoring

import (
	"context"
	"time"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/eventbus"
)

// RegisterMetricsHook subscribes the monitor to the pipeline's moderation
// events so counters track submissions without the pipeline knowing about
// the monitor.
//
// Usage:
//
//	bus := eventbus.NewInMemoryBus(logger, 256)
//	monitor := monitoring.NewMonitor(logger)
//	monitoring.RegisterMetricsHook(bus, monitor)
func RegisterMetricsHook(bus eventbus.Bus, monitor *Monitor) {
	bus.Subscribe(service.EventModerationCompleted, func(ctx context.Context, event eventbus.Event) {
		payload, ok := event.Payload().(service.ModerationEvent)
		if !ok {
			return
		}

		monitor.IncSubmission()
		switch payload.Status {
		case string(entity.StatusCompleted):
			monitor.IncSubmissionCompleted()
		case string(entity.StatusFailed):
			monitor.IncSubmissionFailed()
		}
		if payload.Classification == entity.ClassificationError {
			monitor.IncAnalyzerError()
		}
		monitor.RecordAnalyzeLatency(time.Duration(payload.AnalyzeMillis) * time.Millisecond)

		for _, outcome := range payload.Notifications {
			switch outcome {
			case string(entity.OutcomeSent):
				monitor.IncNotificationSent()
			case string(entity.OutcomeFailed):
				monitor.IncNotificationFailed()
			}
		}
	})

	bus.Subscribe(service.EventModerationFlagged, func(ctx context.Context, event eventbus.Event) {
		monitor.IncFlagged()
	})
}
