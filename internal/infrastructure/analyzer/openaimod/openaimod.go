// Package openaimod analyzes content through a hosted moderation API
// speaking the OpenAI /v1/moderations wire format.
package openaimod

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func init() {
	analyzer.RegisterFactory("openaimod", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

const defaultModel = "omni-moderation-latest"

// Analyzer calls a /v1/moderations endpoint. The backend's flagged boolean
// decides the classification; confidence is the highest category score.
type Analyzer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a hosted moderation API analyzer.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("analyzer", "openaimod"))
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := cfg.Model
	if strings.HasPrefix(model, "gemini") {
		// The shared analyzer config carries one model field across
		// backends; a gemini model cannot be sent to the moderation API.
		logger.Warn("Configured model is not a moderation model, using the default",
			zap.String("configured", model),
			zap.String("model", defaultModel),
		)
		model = ""
	}
	if model == "" {
		model = defaultModel
	}
	return &Analyzer{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "openaimod" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool { return a.apiKey != "" }

type moderationRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type imageInput struct {
	Type     string        `json:"type"`
	ImageURL imageURLField `json:"image_url"`
}

type imageURLField struct {
	URL string `json:"url"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return a.moderate(ctx, text)
}

// AnalyzeImage sends the image as a base64 data URL, which the omni
// moderation models accept.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	return a.moderate(ctx, []imageInput{{Type: "image_url", ImageURL: imageURLField{URL: url}}})
}

func (a *Analyzer) moderate(ctx context.Context, input any) *service.Analysis {
	if a.apiKey == "" {
		return service.ErrorAnalysis("openaimod backend has no API key configured")
	}

	body, err := json.Marshal(moderationRequest{Model: a.model, Input: input})
	if err != nil {
		return service.ErrorAnalysis("marshal moderation request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/moderations", bytes.NewReader(body))
	if err != nil {
		return service.ErrorAnalysis("create moderation request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return service.ErrorAnalysis("moderation request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return service.ErrorAnalysis("read moderation response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return service.ErrorAnalysis("moderation API error %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var modResp moderationResponse
	if err := json.Unmarshal(respBody, &modResp); err != nil {
		return service.ErrorAnalysis("decode moderation response: %v", err)
	}
	if len(modResp.Results) == 0 {
		return service.ErrorAnalysis("moderation API returned no results")
	}

	result := modResp.Results[0]

	var maxScore float64
	for _, score := range result.CategoryScores {
		if score > maxScore {
			maxScore = score
		}
	}

	var flaggedCats []string
	for cat, on := range result.Categories {
		if on {
			flaggedCats = append(flaggedCats, cat)
		}
	}
	sort.Slice(flaggedCats, func(i, j int) bool {
		return result.CategoryScores[flaggedCats[i]] > result.CategoryScores[flaggedCats[j]]
	})

	classification := "appropriate"
	reasoning := "No categories flagged by moderation model."
	confidence := maxScore
	if result.Flagged {
		classification = "inappropriate"
		parts := make([]string, len(flaggedCats))
		for i, cat := range flaggedCats {
			parts[i] = fmt.Sprintf("%s (%.2f)", cat, result.CategoryScores[cat])
		}
		reasoning = "Flagged categories: " + strings.Join(parts, ", ")
	} else if len(result.CategoryScores) == 0 {
		confidence = 0.5
	}

	return &service.Analysis{
		Classification:    classification,
		Confidence:        service.Confidence(confidence),
		Reasoning:         reasoning,
		RawPayload:        string(respBody),
		FlaggedCategories: flaggedCats,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
