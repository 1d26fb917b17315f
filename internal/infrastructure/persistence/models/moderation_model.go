package models

import (
	"time"
)

// ModerationRequestModel is the database row for a submission.
// content_hash is indexed but not unique; duplicate submissions are
// allowed and re-analyzed.
type ModerationRequestModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ContentType string `gorm:"size:32;not null;index"`
	ContentHash string `gorm:"size:128;not null;index"`
	Submitter   string `gorm:"size:255;index"`
	Status      string `gorm:"size:32;not null;index"` // pending, completed, failed
	CreatedAt   time.Time
}

func (ModerationRequestModel) TableName() string {
	return "moderation_requests"
}

// ModerationResultModel is the database row for an analyzer verdict.
// Immutable after insertion; raw_payload keeps the serialized backend
// output for audit.
type ModerationResultModel struct {
	ID             uint     `gorm:"primaryKey;autoIncrement"`
	RequestID      uint     `gorm:"index;not null"`
	Classification string   `gorm:"size:100;not null"`
	Confidence     *float64 `gorm:""`
	Reasoning      string   `gorm:"type:text"`
	RawPayload     string   `gorm:"type:text"`
	CreatedAt      time.Time
}

func (ModerationResultModel) TableName() string {
	return "moderation_results"
}

// NotificationAttemptModel is one append-only delivery record.
// Skipped attempts are never written.
type NotificationAttemptModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	RequestID uint   `gorm:"index;not null"`
	Channel   string `gorm:"size:64;not null"`
	Outcome   string `gorm:"size:32;not null"` // sent, failed
	CreatedAt time.Time
}

func (NotificationAttemptModel) TableName() string {
	return "notification_attempts"
}
