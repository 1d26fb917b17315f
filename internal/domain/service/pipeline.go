package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/pkg/errors"
)

// SubmitInput is one piece of content entering the pipeline.
// Text carries the payload for text submissions; Data and Mime for images.
type SubmitInput struct {
	ContentType entity.ContentType
	Text        string
	Data        []byte
	Mime        string
	Submitter   string
}

func (in *SubmitInput) payload() []byte {
	if in.ContentType == entity.ContentTypeText {
		return []byte(in.Text)
	}
	return in.Data
}

// SubmitReceipt is returned to the caller once the submission reaches a
// terminal status.
type SubmitReceipt struct {
	RequestID uint
	Status    entity.RequestStatus
	Message   string
}

// Pipeline orchestrates a submission: hash, persist pending, analyze,
// persist result, transition status, and fan out notifications for
// inappropriate content.
//
// Each submission is an independent unit of work. The pending row is
// committed before the analyzer runs and no transaction is held across the
// analyzer call; the result insert and the terminal status transition
// commit together afterwards. Notification fan-out runs only after that
// commit and can never change the request status or fail the submission.
//
// A verdict of classification "error" terminates the request as failed for
// both text and image submissions. The original system completed text
// requests even on an error verdict; that asymmetry is deliberately not
// kept: an unanalyzed request is a failed request regardless of modality.
type Pipeline struct {
	repo       repository.ModerationRepository
	analyzer   Analyzer
	dispatcher NotificationDispatcher
	events     EventSink
	logger     *zap.Logger
}

// NewPipeline wires the pipeline. dispatcher and events may be nil;
// a nil dispatcher disables fan-out entirely.
func NewPipeline(
	repo repository.ModerationRepository,
	analyzer Analyzer,
	dispatcher NotificationDispatcher,
	events EventSink,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		repo:       repo,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
	}
}

// Submit runs one piece of content through the full pipeline and returns
// once the request is terminal. A returned error means a pipeline-fatal
// fault (store unavailable, invalid input); an analyzer-reported
// classification error is NOT an error here; it comes back as a normal
// receipt with status failed.
func (p *Pipeline) Submit(ctx context.Context, in SubmitInput) (*SubmitReceipt, error) {
	if !in.ContentType.Valid() {
		return nil, errors.NewInvalidInputError("content type must be text or image")
	}
	payload := in.payload()
	if len(payload) == 0 {
		return nil, errors.NewInvalidInputError("content must not be empty")
	}

	// Created: fingerprint and persist the pending row. Committed before
	// the analyzer runs so a crash mid-analysis leaves an auditable row.
	req := &entity.ModerationRequest{
		ContentType: in.ContentType,
		ContentHash: HashContent(payload),
		Submitter:   in.Submitter,
		Status:      entity.StatusPending,
	}
	if err := p.repo.CreateRequest(ctx, req); err != nil {
		p.logger.Error("Failed to create moderation request",
			zap.String("content_type", string(in.ContentType)),
			zap.Error(err),
		)
		return nil, errors.NewInternalErrorWithCause("failed to create moderation request", err)
	}

	log := p.logger.With(
		zap.Uint("request_id", req.ID),
		zap.String("content_type", string(in.ContentType)),
	)

	// Analyzing: no open transaction during this window. The analyzer
	// converts every internal fault into an "error" classification, so
	// analysis itself cannot abort the submission.
	started := time.Now()
	var analysis *Analysis
	switch in.ContentType {
	case entity.ContentTypeText:
		analysis = p.analyzer.AnalyzeText(ctx, in.Text)
	case entity.ContentTypeImage:
		analysis = p.analyzer.AnalyzeImage(ctx, in.Data, in.Mime)
	}
	elapsed := time.Since(started)

	status := entity.StatusCompleted
	if analysis.Classification == entity.ClassificationError {
		status = entity.StatusFailed
	}

	// Persist the verdict and the terminal transition atomically. On
	// failure the transaction rolls back and the request stays pending;
	// the caller sees a generic processing error.
	result := &entity.ModerationResult{
		RequestID:      req.ID,
		Classification: analysis.Classification,
		Confidence:     analysis.Confidence,
		Reasoning:      analysis.Reasoning,
		RawPayload:     analysis.RawPayload,
	}
	err := p.repo.Transact(ctx, func(tx repository.ModerationRepository) error {
		if err := tx.CreateResult(ctx, result); err != nil {
			return err
		}
		return tx.SetStatus(ctx, req.ID, status)
	})
	if err != nil {
		log.Error("Failed to persist moderation result", zap.Error(err))
		return nil, errors.NewInternalErrorWithCause("failed to persist moderation result", err)
	}

	log.Info("Moderation completed",
		zap.String("classification", analysis.Classification),
		zap.Float64("confidence", analysis.ConfidenceValue()),
		zap.String("status", string(status)),
		zap.Duration("analyze_latency", elapsed),
	)

	// Terminal: fan out alerts for flagged content. Best-effort; any
	// fault here is logged and swallowed, never surfaced to the caller
	// and never a status change.
	var outcomes map[string]entity.NotificationOutcome
	if analysis.Flagged() && p.dispatcher != nil {
		outcomes = p.notify(ctx, req, analysis, log)
	}

	p.publish(ctx, req, analysis, status, outcomes, elapsed)

	return &SubmitReceipt{
		RequestID: req.ID,
		Status:    status,
		Message:   fmt.Sprintf("%s moderation completed. Classification: %s", in.ContentType, analysis.Classification),
	}, nil
}

// notify dispatches the flagged event and appends every non-skipped outcome.
func (p *Pipeline) notify(ctx context.Context, req *entity.ModerationRequest, analysis *Analysis, log *zap.Logger) map[string]entity.NotificationOutcome {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Notification dispatch panicked", zap.Any("panic", r))
		}
	}()

	outcomes := p.dispatcher.Dispatch(ctx, FlaggedEvent{
		RequestID:         req.ID,
		ContentType:       req.ContentType,
		Classification:    analysis.Classification,
		Confidence:        analysis.ConfidenceValue(),
		Reasoning:         analysis.Reasoning,
		FlaggedCategories: analysis.FlaggedCategories,
	})

	for channel, outcome := range outcomes {
		if outcome == entity.OutcomeSkipped {
			continue
		}
		attempt := &entity.NotificationAttempt{
			ID:        uuid.NewString(),
			RequestID: req.ID,
			Channel:   channel,
			Outcome:   outcome,
		}
		if err := p.repo.AppendNotification(ctx, attempt); err != nil {
			log.Warn("Failed to record notification attempt",
				zap.String("channel", channel),
				zap.Error(err),
			)
		}
	}
	return outcomes
}

func (p *Pipeline) publish(ctx context.Context, req *entity.ModerationRequest, analysis *Analysis, status entity.RequestStatus, outcomes map[string]entity.NotificationOutcome, elapsed time.Duration) {
	if p.events == nil {
		return
	}
	payload := ModerationEvent{
		RequestID:      req.ID,
		ContentType:    string(req.ContentType),
		Status:         string(status),
		Classification: analysis.Classification,
		Confidence:     analysis.ConfidenceValue(),
		AnalyzeMillis:  elapsed.Milliseconds(),
	}
	if len(outcomes) > 0 {
		payload.Notifications = make(map[string]string, len(outcomes))
		for ch, out := range outcomes {
			payload.Notifications[ch] = string(out)
		}
	}
	p.events.Publish(ctx, EventModerationCompleted, payload)
	if analysis.Flagged() {
		p.events.Publish(ctx, EventModerationFlagged, payload)
	}
}
