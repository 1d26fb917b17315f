package service

import "context"

// Event types published by the pipeline after a submission commits.
const (
	EventModerationCompleted = "moderation.completed"
	EventModerationFlagged   = "moderation.flagged"
)

// ModerationEvent is the payload published on the event bus.
type ModerationEvent struct {
	RequestID      uint
	ContentType    string
	Status         string
	Classification string
	Confidence     float64
	Notifications  map[string]string
	AnalyzeMillis  int64
}

// EventSink decouples the pipeline from the event bus implementation.
// Publishing is fire-and-forget; a nil sink is valid.
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload any)
}
