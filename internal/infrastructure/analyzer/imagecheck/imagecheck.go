package imagecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"

	// Decoders for the accepted upload formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
)

func init() {
	analyzer.RegisterFactory("imagecheck", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

// Analyzer validates that image bytes decode to a known format. A valid
// image passes as appropriate with a fixed 0.75 confidence; undecodable
// bytes produce an error verdict. No content inspection beyond structural
// validation. Pair with a hosted backend for real vision moderation.
type Analyzer struct {
	logger *zap.Logger
}

// New creates an image validation analyzer.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger.With(zap.String("analyzer", "imagecheck"))}
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "imagecheck" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool { return true }

// AnalyzeText always reports an error verdict; this backend is image-only.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return service.ErrorAnalysis("imagecheck backend does not support text analysis")
}

// AnalyzeImage decodes the image header and reports its dimensions.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return service.ErrorAnalysis("error processing image: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{
		"analysis": "image structure validation",
		"dimensions": map[string]int{
			"width":  cfg.Width,
			"height": cfg.Height,
		},
		"format":        format,
		"declared_mime": mime,
	})

	return &service.Analysis{
		Classification: "appropriate",
		Confidence:     service.Confidence(0.75),
		Reasoning:      fmt.Sprintf("Image analyzed: %dx%d pixels, format: %s", cfg.Width, cfg.Height, format),
		RawPayload:     string(raw),
	}
}
