package service_test

import (
	"context"
	"testing"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/persistence"
	"github.com/modsentry/modsentry/pkg/errors"
)

func seedRequest(t *testing.T, repo *persistence.MemoryModerationRepository, submitter string, ct entity.ContentType, status entity.RequestStatus, classification string, confidence float64) uint {
	t.Helper()
	ctx := context.Background()

	req := &entity.ModerationRequest{
		ContentType: ct,
		ContentHash: service.HashContent([]byte(submitter)),
		Submitter:   submitter,
	}
	if err := repo.CreateRequest(ctx, req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if classification != "" {
		err := repo.CreateResult(ctx, &entity.ModerationResult{
			RequestID:      req.ID,
			Classification: classification,
			Confidence:     service.Confidence(confidence),
		})
		if err != nil {
			t.Fatalf("create result: %v", err)
		}
	}
	if status != entity.StatusPending {
		if err := repo.SetStatus(ctx, req.ID, status); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}
	return req.ID
}

func TestSummaryAggregation(t *testing.T) {
	repo := persistence.NewMemoryModerationRepository()
	a := service.NewAnalytics(repo)

	seedRequest(t, repo, "alice@example.com", entity.ContentTypeText, entity.StatusCompleted, "appropriate", 0.95)
	seedRequest(t, repo, "alice@example.com", entity.ContentTypeImage, entity.StatusCompleted, "inappropriate", 0.85)
	// Another submitter's rows must not leak into alice's aggregate.
	seedRequest(t, repo, "bob@example.com", entity.ContentTypeText, entity.StatusCompleted, "appropriate", 0.10)

	summary, err := a.Summary(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalRequests != 2 {
		t.Fatalf("total: got %d, want 2", summary.TotalRequests)
	}
	if summary.ContentTypeBreakdown.Text != 1 || summary.ContentTypeBreakdown.Image != 1 {
		t.Fatalf("content type breakdown: %+v", summary.ContentTypeBreakdown)
	}
	if summary.ClassificationBreakdown.Appropriate != 1 || summary.ClassificationBreakdown.Inappropriate != 1 {
		t.Fatalf("classification breakdown: %+v", summary.ClassificationBreakdown)
	}
	if summary.StatusBreakdown.Completed != 2 || summary.StatusBreakdown.Pending != 0 {
		t.Fatalf("status breakdown: %+v", summary.StatusBreakdown)
	}
	if summary.AverageConfidence == nil || *summary.AverageConfidence != 0.9 {
		t.Fatalf("average confidence: got %v, want 0.9", summary.AverageConfidence)
	}
	if summary.FirstRequestDate == nil || summary.LastRequestDate == nil {
		t.Fatal("first/last request dates must be set")
	}
	if summary.FirstRequestDate.After(*summary.LastRequestDate) {
		t.Fatal("first request date must not be after last")
	}
}

func TestSummaryPendingWithoutResult(t *testing.T) {
	repo := persistence.NewMemoryModerationRepository()
	a := service.NewAnalytics(repo)

	seedRequest(t, repo, "carol@example.com", entity.ContentTypeText, entity.StatusPending, "", 0)

	summary, err := a.Summary(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.StatusBreakdown.Pending != 1 {
		t.Fatalf("pending count: got %d, want 1", summary.StatusBreakdown.Pending)
	}
	if summary.AverageConfidence != nil {
		t.Fatalf("no results means no average confidence, got %v", *summary.AverageConfidence)
	}
}

func TestSummaryUnknownSubmitter(t *testing.T) {
	repo := persistence.NewMemoryModerationRepository()
	a := service.NewAnalytics(repo)

	_, err := a.Summary(context.Background(), "nobody@example.com")
	if !errors.IsNotFound(err) {
		t.Fatalf("unknown submitter: got %v, want NOT_FOUND", err)
	}
}
