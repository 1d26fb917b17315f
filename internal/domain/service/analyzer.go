package service

import (
	"context"
	"fmt"

	"github.com/modsentry/modsentry/internal/domain/entity"
)

// Analysis is the structured verdict every analyzer backend produces.
// Classification is canonically "appropriate", "inappropriate" or "error";
// backends may also emit specific category labels. Confidence is nil when
// the backend reports none. RawPayload keeps the serialized backend output
// for audit and debugging.
type Analysis struct {
	Classification    string
	Confidence        *float64
	Reasoning         string
	RawPayload        string
	FlaggedCategories []string
}

// Flagged reports whether the verdict requires notification fan-out.
func (a *Analysis) Flagged() bool {
	return a.Classification == entity.ClassificationInappropriate
}

// ConfidenceValue returns the confidence or 0 when absent.
func (a *Analysis) ConfidenceValue() float64 {
	if a.Confidence == nil {
		return 0
	}
	return *a.Confidence
}

// Analyzer classifies content. Implementations never return a Go error for
// ordinary faults: a malformed image, an unreachable backend or an exceeded
// quota all come back as Classification="error" with a diagnostic reasoning,
// and the pipeline maps that to a failed request. Backend-specific setup
// (API keys, lazy client initialization) is internal to the implementation
// and must be safe under concurrent first use.
type Analyzer interface {
	// AnalyzeText classifies UTF-8 text.
	AnalyzeText(ctx context.Context, text string) *Analysis

	// AnalyzeImage classifies raw image bytes with their declared MIME type.
	AnalyzeImage(ctx context.Context, data []byte, mime string) *Analysis
}

// ErrorAnalysis builds the uniform "error" verdict backends return on any
// internal fault.
func ErrorAnalysis(format string, args ...any) *Analysis {
	zero := 0.0
	diag := fmt.Sprintf(format, args...)
	return &Analysis{
		Classification: entity.ClassificationError,
		Confidence:     &zero,
		Reasoning:      diag,
		RawPayload:     fmt.Sprintf(`{"error":%q}`, diag),
	}
}

// Confidence wraps a score for Analysis literals.
func Confidence(v float64) *float64 {
	return &v
}
