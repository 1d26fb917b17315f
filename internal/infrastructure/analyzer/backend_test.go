package analyzer_test

import (
	"strings"
	"testing"

	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/basic"
)

func TestCreateBackendEmptyTypeDefaultsToBasic(t *testing.T) {
	backend, err := analyzer.CreateBackend(analyzer.Config{}, nil)
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	if backend.Name() != "basic" {
		t.Fatalf("default backend: got %s, want basic", backend.Name())
	}
}

func TestCreateBackendUnknownTypeErrors(t *testing.T) {
	_, err := analyzer.CreateBackend(analyzer.Config{Type: "oracle"}, nil)
	if err == nil {
		t.Fatal("unknown analyzer type must error, not fall back")
	}
	if !strings.Contains(err.Error(), "oracle") || !strings.Contains(err.Error(), "basic") {
		t.Fatalf("error must name the bad type and the registered backends: %v", err)
	}
}
