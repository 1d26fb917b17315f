package service

import (
	"testing"

	"github.com/modsentry/modsentry/internal/domain/entity"
)

func TestAnalysisFlagged(t *testing.T) {
	cases := []struct {
		classification string
		want           bool
	}{
		{entity.ClassificationInappropriate, true},
		{entity.ClassificationAppropriate, false},
		{entity.ClassificationError, false},
	}
	for _, c := range cases {
		a := &Analysis{Classification: c.classification}
		if a.Flagged() != c.want {
			t.Fatalf("%s: Flagged()=%v, want %v", c.classification, a.Flagged(), c.want)
		}
	}
}

func TestErrorAnalysis(t *testing.T) {
	a := ErrorAnalysis("backend returned status %d", 503)

	if a.Classification != entity.ClassificationError {
		t.Fatalf("classification: got %s", a.Classification)
	}
	if a.Confidence == nil || *a.Confidence != 0 {
		t.Fatalf("confidence: got %v, want 0", a.Confidence)
	}
	if a.Reasoning != "backend returned status 503" {
		t.Fatalf("reasoning: got %q", a.Reasoning)
	}
	if a.Flagged() {
		t.Fatal("error verdicts must not flag")
	}
}
