package analyzer

import (
	"context"
	"fmt"
	"sync"

	"github.com/modsentry/modsentry/internal/domain/service"
	"go.uber.org/zap"
)

// Backend is the infrastructure-layer analysis backend interface.
// Each backend implements service.Analyzer (AnalyzeText + AnalyzeImage) so
// the pipeline can swap backends with zero changes.
type Backend interface {
	service.Analyzer

	// Name returns the backend identifier (e.g. "keyword", "gemini")
	Name() string

	// IsAvailable checks if the backend has everything it needs to run
	IsAvailable(ctx context.Context) bool
}

// Config holds configuration for an analysis backend. One flat struct for
// every backend type; each reads only the fields it needs.
type Config struct {
	Type         string  `json:"type"`
	BaseURL      string  `json:"base_url"`
	APIKey       string  `json:"api_key"`
	Model        string  `json:"model"`
	DenylistPath string  `json:"denylist_path"`
	Threshold    float64 `json:"threshold"`
}

// --- Backend Factory Registry ---
// Backends register themselves via init() in their own package.
// Adding a new backend type = implement Backend + RegisterFactory("type", New).

// Factory creates a Backend from config.
type Factory func(cfg Config, logger *zap.Logger) Backend

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory registers a backend factory for the given type name.
// Called from init() in each backend sub-package.
func RegisterFactory(typeName string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateBackend creates a Backend using the registered factory for cfg.Type.
// An empty Type defaults to "basic".
func CreateBackend(cfg Config, logger *zap.Logger) (Backend, error) {
	t := cfg.Type
	if t == "" {
		t = "basic"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()

	if !ok {
		factoryMu.RLock()
		available := make([]string, 0, len(factories))
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown analyzer type %q (available: %v)", t, available)
	}

	return factory(cfg, logger), nil
}
