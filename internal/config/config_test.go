package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Timeout != 5*time.Second {
		t.Errorf("default timeout = %v", cfg.Search.Timeout)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("default max results = %d", cfg.Search.MaxResults)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("default embedding provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codescout.yaml")
	content := `
root: /tmp/repo
search:
  timeout: 2s
  max_results: 10
embedding:
  provider: ollama
  model: nomic-embed-text
connectors:
  - type: github-issues
    owner: acme
    repo: widgets
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.Search.Timeout)
	}
	if cfg.Search.MaxResults != 10 {
		t.Errorf("max results = %d, want 10", cfg.Search.MaxResults)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.Embedding.Provider)
	}
	if cfg.StorePath != "/tmp/repo/.codescout/index.db" {
		t.Errorf("store path = %q", cfg.StorePath)
	}
	if len(cfg.Connectors) != 1 || cfg.Connectors[0].Name != "github-issues" {
		t.Errorf("connectors = %+v", cfg.Connectors)
	}
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  provider: quantum\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

func TestLoadRejectsIncompleteConnector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "connectors:\n  - type: github-issues\n    owner: acme\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for github connector without repo")
	}
}
