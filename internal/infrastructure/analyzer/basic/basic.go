// Package basic composes the keyword and imagecheck backends into one
// analyzer covering both modalities without external I/O. It is the default
// backend for local development.
package basic

import (
	"context"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer/imagecheck"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer/keyword"
)

func init() {
	analyzer.RegisterFactory("basic", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

// Analyzer routes text to the keyword backend and images to imagecheck.
type Analyzer struct {
	text  analyzer.Backend
	image analyzer.Backend
}

// New builds the composite from the shared backend config.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		text:  keyword.New(cfg, logger),
		image: imagecheck.New(cfg, logger),
	}
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "basic" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	return a.text.IsAvailable(ctx) && a.image.IsAvailable(ctx)
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return a.text.AnalyzeText(ctx, text)
}

func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	return a.image.AnalyzeImage(ctx, data, mime)
}

// Close releases resources held by the composed backends.
func (a *Analyzer) Close() error {
	if closer, ok := a.text.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
