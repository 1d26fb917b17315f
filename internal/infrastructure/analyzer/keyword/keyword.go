package keyword

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
	"github.com/modsentry/modsentry/pkg/safego"
)

func init() {
	analyzer.RegisterFactory("keyword", func(cfg analyzer.Config, logger *zap.Logger) analyzer.Backend {
		return New(cfg, logger)
	})
}

// defaultDenylist seeds the analyzer when no denylist file is configured.
var defaultDenylist = []string{"violence", "hate", "explicit", "abuse", "threat"}

// Analyzer flags text containing denylisted substrings. Deterministic and
// synchronous, with no external I/O on the analysis path. Confidence is fixed:
// 0.95 when flagged, 0.85 when clean.
//
// The denylist can be backed by a file (one term per line, '#' comments);
// the file is watched and hot-reloaded on change.
type Analyzer struct {
	mu      sync.RWMutex
	terms   []string
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// New creates a keyword analyzer. With cfg.DenylistPath set, terms load
// from the file and reload whenever it changes; otherwise the built-in
// default list is used.
func New(cfg analyzer.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		terms:  defaultDenylist,
		path:   cfg.DenylistPath,
		logger: logger.With(zap.String("analyzer", "keyword")),
	}

	if a.path != "" {
		if terms, err := loadDenylist(a.path); err != nil {
			a.logger.Warn("Failed to load denylist file, using defaults",
				zap.String("path", a.path),
				zap.Error(err),
			)
		} else {
			a.terms = terms
		}
		a.watch()
	}

	return a
}

var _ analyzer.Backend = (*Analyzer)(nil)

func (a *Analyzer) Name() string { return "keyword" }

func (a *Analyzer) IsAvailable(ctx context.Context) bool { return true }

// AnalyzeText scans for denylisted substrings, case-insensitively.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	lower := strings.ToLower(text)

	a.mu.RLock()
	terms := a.terms
	a.mu.RUnlock()

	var flagged []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			flagged = append(flagged, term)
		}
	}

	classification := "appropriate"
	confidence := 0.85
	reasoning := "No inappropriate content detected."
	if len(flagged) > 0 {
		classification = "inappropriate"
		confidence = 0.95
		reasoning = "Flagged keywords found: " + strings.Join(flagged, ", ")
	}

	raw, _ := json.Marshal(map[string]any{
		"analysis":      "keyword denylist scan",
		"flagged_terms": flagged,
		"text_length":   len(text),
	})

	return &service.Analysis{
		Classification:    classification,
		Confidence:        service.Confidence(confidence),
		Reasoning:         reasoning,
		RawPayload:        string(raw),
		FlaggedCategories: flagged,
	}
}

// AnalyzeImage always reports an error verdict; this backend is text-only.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	return service.ErrorAnalysis("keyword backend does not support image analysis")
}

// Close stops the denylist watcher, if one is running.
func (a *Analyzer) Close() error {
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

// watch hot-reloads the denylist file on change. Watch failures degrade to
// a static list; they never fail construction.
func (a *Analyzer) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warn("Failed to create denylist watcher", zap.Error(err))
		return
	}
	if err := watcher.Add(a.path); err != nil {
		a.logger.Warn("Failed to watch denylist file", zap.String("path", a.path), zap.Error(err))
		watcher.Close()
		return
	}
	a.watcher = watcher

	safego.Go(a.logger, "denylist-watcher", func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				terms, err := loadDenylist(a.path)
				if err != nil {
					a.logger.Warn("Denylist reload failed", zap.Error(err))
					continue
				}
				a.mu.Lock()
				a.terms = terms
				a.mu.Unlock()
				a.logger.Info("Denylist reloaded", zap.Int("terms", len(terms)))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.logger.Warn("Denylist watcher error", zap.Error(err))
			}
		}
	})
}

func loadDenylist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, strings.ToLower(line))
	}
	return terms, scanner.Err()
}
