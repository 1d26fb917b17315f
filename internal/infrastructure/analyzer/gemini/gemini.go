// Package gemini analyzes content via the Google Gemini generateContent
// API, deriving verdicts from the model's safety ratings.
package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func init() {
	analyzer.RegisterFactory("gemini", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

// probabilityScore maps Gemini safety probability buckets to confidence
// values. MEDIUM and above flags the content.
var probabilityScore = map[string]float64{
	"NEGLIGIBLE": 0.1,
	"LOW":        0.3,
	"MEDIUM":     0.6,
	"HIGH":       0.9,
}

const flagScore = 0.6

// Analyzer sends content to Gemini with safety blocking disabled and reads
// the safety ratings off the response.
type Analyzer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Gemini safety-rating analyzer.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Analyzer{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Transport: transport, Timeout: 60 * time.Second},
		logger:  logger.With(zap.String("analyzer", "gemini"), zap.String("model", model)),
	}
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "gemini" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool { return a.apiKey != "" }

type apiPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *apiInlineData `json:"inline_data,omitempty"`
}

type apiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type apiContent struct {
	Parts []apiPart `json:"parts"`
}

type apiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type apiRequest struct {
	Contents       []apiContent       `json:"contents"`
	SafetySettings []apiSafetySetting `json:"safetySettings"`
}

type apiSafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

type apiResponse struct {
	Candidates []struct {
		SafetyRatings []apiSafetyRating `json:"safetyRatings"`
		FinishReason  string            `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason   string            `json:"blockReason"`
		SafetyRatings []apiSafetyRating `json:"safetyRatings"`
	} `json:"promptFeedback"`
}

// safetySettings disables blocking for every harm category so responses
// always carry ratings instead of being refused outright.
func safetySettings() []apiSafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]apiSafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = apiSafetySetting{Category: c, Threshold: "BLOCK_NONE"}
	}
	return settings
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return a.generate(ctx, []apiPart{{Text: text}})
}

func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	parts := []apiPart{
		{Text: "Describe this image briefly."},
		{InlineData: &apiInlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		}},
	}
	return a.generate(ctx, parts)
}

func (a *Analyzer) generate(ctx context.Context, parts []apiPart) *service.Analysis {
	if a.apiKey == "" {
		return service.ErrorAnalysis("gemini backend has no API key configured")
	}

	body, err := json.Marshal(apiRequest{
		Contents:       []apiContent{{Parts: parts}},
		SafetySettings: safetySettings(),
	})
	if err != nil {
		return service.ErrorAnalysis("marshal request: %v", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return service.ErrorAnalysis("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return service.ErrorAnalysis("gemini request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return service.ErrorAnalysis("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return service.ErrorAnalysis("gemini API error %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return service.ErrorAnalysis("decode response: %v", err)
	}

	ratings := apiResp.PromptFeedback.SafetyRatings
	if len(apiResp.Candidates) > 0 {
		ratings = append(ratings, apiResp.Candidates[0].SafetyRatings...)
	}
	if len(ratings) == 0 && apiResp.PromptFeedback.BlockReason == "" {
		return service.ErrorAnalysis("gemini response carried no safety ratings")
	}

	maxScore := 0.1
	scores := make(map[string]float64, len(ratings))
	var flagged []string
	for _, r := range ratings {
		score, ok := probabilityScore[r.Probability]
		if !ok {
			continue
		}
		if score > scores[r.Category] {
			scores[r.Category] = score
		}
		if score > maxScore {
			maxScore = score
		}
	}
	for cat, score := range scores {
		if score >= flagScore {
			flagged = append(flagged, cat)
		}
	}
	sort.Strings(flagged)

	// A safety block is the strongest signal the API gives.
	if apiResp.PromptFeedback.BlockReason == "SAFETY" && maxScore < flagScore {
		maxScore = probabilityScore["HIGH"]
	}

	classification := "appropriate"
	reasoning := "Safety ratings below moderation threshold."
	if len(flagged) > 0 || apiResp.PromptFeedback.BlockReason == "SAFETY" {
		classification = "inappropriate"
		if len(flagged) > 0 {
			reasoning = "Safety categories at or above MEDIUM: " + strings.Join(flagged, ", ")
		} else {
			reasoning = "Content blocked by safety filter."
		}
	}

	return &service.Analysis{
		Classification:    classification,
		Confidence:        service.Confidence(maxScore),
		Reasoning:         reasoning,
		RawPayload:        string(respBody),
		FlaggedCategories: flagged,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
