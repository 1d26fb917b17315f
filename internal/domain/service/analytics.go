package service

import (
	"context"
	"time"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/pkg/errors"
)

// ContentTypeBreakdown counts requests per modality.
type ContentTypeBreakdown struct {
	Text  int `json:"text"`
	Image int `json:"image"`
}

// ClassificationBreakdown counts canonical verdicts.
type ClassificationBreakdown struct {
	Appropriate   int `json:"appropriate"`
	Inappropriate int `json:"inappropriate"`
}

// StatusBreakdown counts requests per lifecycle status.
type StatusBreakdown struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// AnalyticsSummary aggregates one submitter's moderation history.
type AnalyticsSummary struct {
	Submitter               string                  `json:"submitter"`
	TotalRequests           int                     `json:"total_requests"`
	ContentTypeBreakdown    ContentTypeBreakdown    `json:"content_type_breakdown"`
	ClassificationBreakdown ClassificationBreakdown `json:"classification_breakdown"`
	StatusBreakdown         StatusBreakdown         `json:"status_breakdown"`
	AverageConfidence       *float64                `json:"average_confidence"`
	FirstRequestDate        *time.Time              `json:"first_request_date"`
	LastRequestDate         *time.Time              `json:"last_request_date"`
}

// Analytics is the read-side aggregation over stored moderation records.
type Analytics struct {
	repo repository.ModerationRepository
}

// NewAnalytics creates the analytics read service.
func NewAnalytics(repo repository.ModerationRepository) *Analytics {
	return &Analytics{repo: repo}
}

// Summary recomputes the per-submitter aggregate from stored rows.
// Returns NOT_FOUND when the submitter has no requests.
func (a *Analytics) Summary(ctx context.Context, submitter string) (*AnalyticsSummary, error) {
	requests, results, err := a.repo.ListBySubmitter(ctx, submitter)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, errors.NewNotFoundError("no moderation requests found for submitter: " + submitter)
	}

	summary := &AnalyticsSummary{
		Submitter:     submitter,
		TotalRequests: len(requests),
	}

	var confidenceSum float64
	var confidenceCount int
	var first, last time.Time

	for _, req := range requests {
		switch req.ContentType {
		case entity.ContentTypeText:
			summary.ContentTypeBreakdown.Text++
		case entity.ContentTypeImage:
			summary.ContentTypeBreakdown.Image++
		}

		switch req.Status {
		case entity.StatusPending:
			summary.StatusBreakdown.Pending++
		case entity.StatusCompleted:
			summary.StatusBreakdown.Completed++
		case entity.StatusFailed:
			summary.StatusBreakdown.Failed++
		}

		if result, ok := results[req.ID]; ok {
			switch result.Classification {
			case entity.ClassificationAppropriate:
				summary.ClassificationBreakdown.Appropriate++
			case entity.ClassificationInappropriate:
				summary.ClassificationBreakdown.Inappropriate++
			}
			if result.Confidence != nil {
				confidenceSum += *result.Confidence
				confidenceCount++
			}
		}

		if first.IsZero() || req.CreatedAt.Before(first) {
			first = req.CreatedAt
		}
		if req.CreatedAt.After(last) {
			last = req.CreatedAt
		}
	}

	if confidenceCount > 0 {
		avg := confidenceSum / float64(confidenceCount)
		summary.AverageConfidence = &avg
	}
	if !first.IsZero() {
		summary.FirstRequestDate = &first
	}
	if !last.IsZero() {
		summary.LastRequestDate = &last
	}

	return summary, nil
}
