// Package indexer keeps the search indexes in sync with the working tree:
// a full walk on startup, filesystem events afterward, and a worker that
// replaces each file's entries atomically in the store and in memory.
package indexer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/samueljklee/codescout/internal/analyze"
	"github.com/samueljklee/codescout/internal/store"
)

// FileInfo is metadata for one discovered file.
type FileInfo struct {
	Path      string
	Lang      analyze.Language
	Hash      string
	SizeBytes int64
	MtimeUnix int64
}

// WalkError is one file the walk could not process.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// WalkResult is everything a walk found.
type WalkResult struct {
	Files  []FileInfo
	Errors []WalkError
}

// DefaultIgnorePatterns are directories never worth indexing.
var DefaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"dist",
	"build",
	"vendor",
	"__pycache__",
	"coverage",
	".next",
	".cache",
	"target",
	".idea",
	".vscode",
	".DS_Store",
	".codescout",
}

// WalkerConfig configures the walker.
type WalkerConfig struct {
	// MaxConcurrency limits parallel hashing. Default: 4.
	MaxConcurrency int
	// ExistingFiles enables the fast path: files whose size and mtime match
	// a known record keep their recorded hash without being re-read.
	ExistingFiles map[string]store.FileRecord
}

// Walker discovers indexable files under a root, honoring .gitignore.
type Walker struct {
	root          string
	config        WalkerConfig
	registry      *analyze.Registry
	ignoreMatcher gitignore.IgnoreParser
}

func NewWalker(root string, registry *analyze.Registry, config WalkerConfig) *Walker {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}

	patterns := make([]string, 0, len(DefaultIgnorePatterns)+16)
	patterns = append(patterns, DefaultIgnorePatterns...)
	patterns = append(patterns, loadGitignorePatterns(root)...)

	return &Walker{
		root:          root,
		config:        config,
		registry:      registry,
		ignoreMatcher: gitignore.CompileIgnoreLines(patterns...),
	}
}

// Ignores reports whether a repo-relative path is excluded from indexing.
func (w *Walker) Ignores(relPath string) bool {
	return w.ignoreMatcher.MatchesPath(relPath)
}

func loadGitignorePatterns(root string) []string {
	var patterns []string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		if lines, err := readGitignoreLines(path); err == nil {
			patterns = append(patterns, lines...)
		}
		return nil
	})
	return patterns
}

func readGitignoreLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Walk discovers every indexable file, hashing in parallel.
func (w *Walker) Walk(ctx context.Context) WalkResult {
	pathChan := make(chan string, 100)
	resultChan := make(chan FileInfo, 100)
	errorChan := make(chan WalkError, 100)

	var wg sync.WaitGroup
	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathChan {
				info, err := w.fileInfo(path)
				if err != nil {
					errorChan <- WalkError{Path: path, Err: err}
					continue
				}
				resultChan <- *info
			}
		}()
	}

	var result WalkResult
	var collectErrs []WalkError
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		results, errs := resultChan, errorChan
		for results != nil || errs != nil {
			select {
			case info, ok := <-results:
				if !ok {
					results = nil
					continue
				}
				result.Files = append(result.Files, info)
			case werr, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				collectErrs = append(collectErrs, werr)
			}
		}
	}()

	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			errorChan <- WalkError{Path: path, Err: err}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if relPath != "." && w.ignoreMatcher.MatchesPath(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if w.registry.Detect(path) == "" {
			return nil
		}

		pathChan <- path
		return nil
	})

	close(pathChan)
	wg.Wait()
	close(resultChan)
	close(errorChan)
	<-collectDone
	result.Errors = collectErrs

	if walkErr != nil && walkErr != context.Canceled {
		result.Errors = append(result.Errors, WalkError{Path: w.root, Err: walkErr})
	}
	return result
}

// fileInfo stats and hashes one file, reusing a recorded hash when size and
// mtime are unchanged.
func (w *Walker) fileInfo(fullPath string) (*FileInfo, error) {
	relPath, err := filepath.Rel(w.root, fullPath)
	if err != nil {
		return nil, err
	}
	lang := w.registry.Detect(fullPath)

	stat, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()
	mtime := stat.ModTime().Unix()

	if existing, ok := w.config.ExistingFiles[relPath]; ok {
		if existing.SizeBytes == size && existing.MtimeUnix == mtime {
			return &FileInfo{
				Path:      relPath,
				Lang:      lang,
				Hash:      existing.Hash,
				SizeBytes: size,
				MtimeUnix: mtime,
			}, nil
		}
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	return &FileInfo{
		Path:      relPath,
		Lang:      lang,
		Hash:      fmt.Sprintf("%x", hasher.Sum(nil)),
		SizeBytes: size,
		MtimeUnix: mtime,
	}, nil
}
