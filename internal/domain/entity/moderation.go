package entity

import (
	"time"
)

// ContentType is the modality of a submitted piece of content.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Valid reports whether the content type is one the pipeline accepts.
func (t ContentType) Valid() bool {
	return t == ContentTypeText || t == ContentTypeImage
}

// RequestStatus is the lifecycle state of a moderation request.
// pending holds only while analysis is in flight; completed and failed
// are terminal and never revert.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusFailed    RequestStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Canonical classifications produced by analyzer backends. Backends may
// also emit specific category labels; these three are the values the
// pipeline switches on.
const (
	ClassificationAppropriate   = "appropriate"
	ClassificationInappropriate = "inappropriate"
	ClassificationError         = "error"
)

// ModerationRequest is one submission moving through the pipeline.
// Created with status pending; mutated only by the pipeline's
// status-transition step.
type ModerationRequest struct {
	ID          uint
	ContentType ContentType
	ContentHash string
	Submitter   string
	Status      RequestStatus
	CreatedAt   time.Time
}

// ModerationResult is the analyzer verdict for one request.
// Immutable after insertion. RawPayload keeps the serialized backend
// output for audit.
type ModerationResult struct {
	ID             uint
	RequestID      uint
	Classification string
	Confidence     *float64
	Reasoning      string
	RawPayload     string
	CreatedAt      time.Time
}

// NotificationOutcome is the per-channel delivery result.
type NotificationOutcome string

const (
	OutcomeSent    NotificationOutcome = "sent"
	OutcomeFailed  NotificationOutcome = "failed"
	OutcomeSkipped NotificationOutcome = "skipped"
)

// NotificationAttempt records one delivery try on one channel.
// Append-only; skipped attempts are never persisted.
type NotificationAttempt struct {
	ID        string
	RequestID uint
	Channel   string
	Outcome   NotificationOutcome
	CreatedAt time.Time
}
