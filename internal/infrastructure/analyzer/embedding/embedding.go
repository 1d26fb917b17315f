// Package embedding classifies content by semantic similarity against a
// fixed set of labeled category phrases, using an Ollama-compatible
// /api/embed endpoint for vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func init() {
	analyzer.RegisterFactory("embedding", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

// label is a category anchor phrase. Content lands on whichever group its
// embedding sits closer to.
type label struct {
	category      string
	phrase        string
	inappropriate bool
	vector        []float32
}

func defaultLabels() []label {
	return []label{
		{category: "violence", phrase: "graphic violence, physical harm, or gore", inappropriate: true},
		{category: "hate", phrase: "hate speech or discrimination against a group of people", inappropriate: true},
		{category: "explicit", phrase: "sexually explicit adult content", inappropriate: true},
		{category: "abuse", phrase: "harassment, bullying, or verbal abuse directed at a person", inappropriate: true},
		{category: "threat", phrase: "a threat of harm or intimidation", inappropriate: true},
		{category: "conversation", phrase: "ordinary friendly everyday conversation"},
		{category: "informational", phrase: "neutral informational or educational content"},
	}
}

// Analyzer scores content by cosine similarity to category anchor phrases.
// Anchor vectors are computed once, lazily, on the first analysis so that
// constructing the backend never blocks on the embed service.
type Analyzer struct {
	baseURL   string
	model     string
	threshold float64
	client    *http.Client
	logger    *zap.Logger

	mu      sync.Mutex
	labels  []label
	ready   bool
	initErr error
}

// New creates an embedding similarity analyzer.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.3
	}
	return &Analyzer{
		baseURL:   baseURL,
		model:     model,
		threshold: threshold,
		labels:    defaultLabels(),
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger.With(zap.String("analyzer", "embedding")),
	}
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "embedding" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AnalyzeText embeds the text and compares it against the anchor phrases.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return a.analyze(ctx, text)
}

// AnalyzeImage embeds the base64 payload through the same model. Only
// meaningful with a multimodal embedding model; otherwise the similarity
// signal is noise and the threshold keeps the verdict appropriate.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	return a.analyze(ctx, base64.StdEncoding.EncodeToString(data))
}

func (a *Analyzer) analyze(ctx context.Context, input string) *service.Analysis {
	if err := a.ensureLabels(ctx); err != nil {
		return service.ErrorAnalysis("embedding label init failed: %v", err)
	}

	vec, err := a.embedOne(ctx, input)
	if err != nil {
		return service.ErrorAnalysis("embedding request failed: %v", err)
	}

	scores := make(map[string]float64, len(a.labels))
	var sumInap, sumApp, topInap, topApp float64
	var topInapCats []string
	for _, l := range a.labels {
		sim := cosine(vec, l.vector)
		scores[l.category] = sim
		if l.inappropriate {
			sumInap += sim
			if sim > topInap {
				topInap = sim
				topInapCats = []string{l.category}
			} else if sim == topInap && topInap > 0 {
				topInapCats = append(topInapCats, l.category)
			}
		} else {
			sumApp += sim
			if sim > topApp {
				topApp = sim
			}
		}
	}

	raw, _ := json.Marshal(map[string]any{
		"analysis":   "embedding similarity",
		"model":      a.model,
		"similarity": scores,
		"threshold":  a.threshold,
	})

	// The groups compete on total similarity mass, so content moderately
	// close to several inappropriate anchors still flags even when a single
	// appropriate anchor is its nearest neighbor. The threshold applies to
	// the strongest inappropriate match; equal sums go to appropriate.
	if sumInap > sumApp && topInap >= a.threshold {
		sort.Strings(topInapCats)
		return &service.Analysis{
			Classification:    "inappropriate",
			Confidence:        service.Confidence(clamp01(topInap)),
			Reasoning:         fmt.Sprintf("Inappropriate similarity outweighs appropriate: %s (top similarity %.2f)", strings.Join(topInapCats, ", "), topInap),
			RawPayload:        string(raw),
			FlaggedCategories: topInapCats,
		}
	}

	return &service.Analysis{
		Classification: "appropriate",
		Confidence:     service.Confidence(clamp01(topApp)),
		Reasoning:      "No inappropriate category exceeded the similarity threshold.",
		RawPayload:     string(raw),
	}
}

// ensureLabels embeds the anchor phrases once. A failed attempt is retried
// on the next analysis rather than cached.
func (a *Analyzer) ensureLabels(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}

	phrases := make([]string, len(a.labels))
	for i, l := range a.labels {
		phrases[i] = l.phrase
	}
	vectors, err := a.embed(ctx, phrases)
	if err != nil {
		return err
	}
	if len(vectors) != len(a.labels) {
		return fmt.Errorf("expected %d label vectors, got %d", len(a.labels), len(vectors))
	}
	for i := range a.labels {
		a.labels[i].vector = vectors[i]
	}
	a.ready = true
	a.logger.Info("Category anchors embedded",
		zap.Int("labels", len(a.labels)),
		zap.String("model", a.model),
	)
	return nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func (a *Analyzer) embedOne(ctx context.Context, input string) ([]float32, error) {
	vectors, err := a.embed(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return vectors[0], nil
}

func (a *Analyzer) embed(ctx context.Context, input any) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: a.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(embedResp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed endpoint returned no vectors")
	}
	return embedResp.Embeddings, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
