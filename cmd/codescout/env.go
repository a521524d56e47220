package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/samueljklee/codescout/internal/config"
	"github.com/samueljklee/codescout/internal/factory"
	"github.com/samueljklee/codescout/internal/indexer"
)

// buildApp resolves the repository root, loads configuration, and wires
// the application. Every command goes through here.
func buildApp(ctx context.Context, repoFlag, configFlag string) (*factory.App, error) {
	repoRoot := repoFlag
	if repoRoot == "" {
		var err error
		repoRoot, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository path is not a valid directory: %s", absRoot)
	}

	if gitInfo := indexer.DetectGit(ctx, absRoot); gitInfo.IsGit {
		log.Printf("📝 Git repository detected at %s", gitInfo.GitRoot)
	}

	configPath := configFlag
	if configPath == "" {
		configPath = filepath.Join(absRoot, ".codescout", "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// The -repo flag wins over the config file's root. A store path the
	// config derived from the old root moves with it; an explicit
	// store_path stays put.
	if repoFlag != "" && cfg.Root != absRoot {
		if cfg.StorePath == filepath.Join(cfg.Root, ".codescout", "index.db") {
			cfg.StorePath = filepath.Join(absRoot, ".codescout", "index.db")
		}
		cfg.Root = absRoot
	}

	return factory.Build(ctx, cfg)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
