package service

import (
	"context"

	"github.com/modsentry/modsentry/internal/domain/entity"
)

// FlaggedEvent carries everything a notification channel needs to alert
// on inappropriate content.
type FlaggedEvent struct {
	RequestID         uint
	ContentType       entity.ContentType
	Classification    string
	Confidence        float64
	Reasoning         string
	FlaggedCategories []string
}

// NotificationDispatcher fans a flagged event out to every configured
// channel. Per-channel failures are isolated into the returned outcome map
// and never propagate; a channel without configuration reports skipped.
// There is no error return: delivery is best-effort and the outcome map is
// the full report.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event FlaggedEvent) map[string]entity.NotificationOutcome
}
