package keyword

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func TestAnalyzeTextFlagged(t *testing.T) {
	a := New(analyzer.Config{}, nil)

	analysis := a.AnalyzeText(context.Background(), "This post contains VIOLENCE and hate.")
	if analysis.Classification != "inappropriate" {
		t.Fatalf("expected inappropriate, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %v", analysis.Confidence)
	}
	if !strings.Contains(analysis.Reasoning, "violence") || !strings.Contains(analysis.Reasoning, "hate") {
		t.Fatalf("reasoning missing flagged terms: %s", analysis.Reasoning)
	}
	if len(analysis.FlaggedCategories) != 2 {
		t.Fatalf("expected 2 flagged categories, got %v", analysis.FlaggedCategories)
	}
}

func TestAnalyzeTextClean(t *testing.T) {
	a := New(analyzer.Config{}, nil)

	analysis := a.AnalyzeText(context.Background(), "What a lovely afternoon for gardening.")
	if analysis.Classification != "appropriate" {
		t.Fatalf("expected appropriate, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", analysis.Confidence)
	}
	if len(analysis.FlaggedCategories) != 0 {
		t.Fatalf("expected no flagged categories, got %v", analysis.FlaggedCategories)
	}
}

func TestAnalyzeImageUnsupported(t *testing.T) {
	a := New(analyzer.Config{}, nil)

	analysis := a.AnalyzeImage(context.Background(), []byte{0x89, 0x50}, "image/png")
	if analysis.Classification != "error" {
		t.Fatalf("expected error classification, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", analysis.Confidence)
	}
}

func TestDenylistFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	content := "# custom terms\nbadger\n\nWEASEL\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write denylist: %v", err)
	}

	a := New(analyzer.Config{DenylistPath: path}, nil)
	defer a.Close()

	analysis := a.AnalyzeText(context.Background(), "a weasel walked by")
	if analysis.Classification != "inappropriate" {
		t.Fatalf("expected custom term to flag, got %s", analysis.Classification)
	}

	// Default terms are replaced, not merged.
	analysis = a.AnalyzeText(context.Background(), "violence")
	if analysis.Classification != "appropriate" {
		t.Fatalf("expected default term to be inactive, got %s", analysis.Classification)
	}
}

func TestLoadDenylistSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	if err := os.WriteFile(path, []byte("# a comment\n\nterm\n"), 0o644); err != nil {
		t.Fatalf("write denylist: %v", err)
	}

	terms, err := loadDenylist(path)
	if err != nil {
		t.Fatalf("loadDenylist: %v", err)
	}
	if len(terms) != 1 || terms[0] != "term" {
		t.Fatalf("unexpected terms: %v", terms)
	}
}
