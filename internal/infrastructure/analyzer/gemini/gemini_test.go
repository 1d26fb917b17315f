package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func geminiServer(t *testing.T, ratings []map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"safetyRatings": ratings,
				"finishReason":  "STOP",
			}},
		})
	}))
}

func TestAnalyzeTextHighRating(t *testing.T) {
	srv := geminiServer(t, []map[string]string{
		{"category": "HARM_CATEGORY_HATE_SPEECH", "probability": "HIGH"},
		{"category": "HARM_CATEGORY_HARASSMENT", "probability": "NEGLIGIBLE"},
	})
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeText(context.Background(), "some content")

	if analysis.Classification != "inappropriate" {
		t.Fatalf("expected inappropriate, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9 for HIGH, got %v", analysis.Confidence)
	}
	if len(analysis.FlaggedCategories) != 1 || analysis.FlaggedCategories[0] != "HARM_CATEGORY_HATE_SPEECH" {
		t.Fatalf("unexpected flagged categories: %v", analysis.FlaggedCategories)
	}
}

func TestAnalyzeTextMediumFlags(t *testing.T) {
	srv := geminiServer(t, []map[string]string{
		{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "probability": "MEDIUM"},
	})
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeText(context.Background(), "some content")

	if analysis.Classification != "inappropriate" {
		t.Fatalf("MEDIUM must flag, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.6 {
		t.Fatalf("expected confidence 0.6 for MEDIUM, got %v", analysis.Confidence)
	}
}

func TestAnalyzeTextNegligible(t *testing.T) {
	srv := geminiServer(t, []map[string]string{
		{"category": "HARM_CATEGORY_HATE_SPEECH", "probability": "NEGLIGIBLE"},
		{"category": "HARM_CATEGORY_HARASSMENT", "probability": "LOW"},
	})
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeText(context.Background(), "hello")

	if analysis.Classification != "appropriate" {
		t.Fatalf("expected appropriate, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3 (max of LOW), got %v", analysis.Confidence)
	}
}

func TestAnalyzeTextSafetyBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"promptFeedback": map[string]any{"blockReason": "SAFETY"},
		})
	}))
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeText(context.Background(), "blocked content")

	if analysis.Classification != "inappropriate" {
		t.Fatalf("safety block must flag, got %s", analysis.Classification)
	}
	if analysis.Confidence == nil || *analysis.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9 on block, got %v", analysis.Confidence)
	}
}

func TestAnalyzeTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeText(context.Background(), "hello")

	if analysis.Classification != "error" {
		t.Fatalf("expected error classification, got %s", analysis.Classification)
	}
}

func TestAnalyzeImageInlineData(t *testing.T) {
	var gotParts []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 1 {
			gotParts = req.Contents[0].Parts
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"safetyRatings": []map[string]string{
					{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "probability": "NEGLIGIBLE"},
				},
			}},
		})
	}))
	defer srv.Close()

	a := New(analyzer.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	analysis := a.AnalyzeImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")

	if analysis.Classification != "appropriate" {
		t.Fatalf("expected appropriate, got %s", analysis.Classification)
	}
	if len(gotParts) != 2 {
		t.Fatalf("expected text + inline_data parts, got %v", gotParts)
	}
	inline, _ := gotParts[1]["inline_data"].(map[string]any)
	if inline["mime_type"] != "image/jpeg" {
		t.Fatalf("expected mime type to pass through, got %v", inline)
	}
}

func TestAnalyzeWithoutAPIKey(t *testing.T) {
	a := New(analyzer.Config{}, nil)
	if a.IsAvailable(context.Background()) {
		t.Fatal("backend without API key must not report available")
	}
	if got := a.AnalyzeText(context.Background(), "hi"); got.Classification != "error" {
		t.Fatalf("expected error classification, got %s", got.Classification)
	}
}
