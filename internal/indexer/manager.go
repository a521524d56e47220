package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/samueljklee/codescout/internal/analyze"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/store"
)

// Manager owns the indexing lifecycle: hydrate the in-memory indexes from
// the store, reconcile against the working tree, then keep everything
// fresh from filesystem events.
type Manager struct {
	db       *store.DB
	registry *analyze.Registry
	indexes  *index.Set
	worker   *Worker
	watcher  *FileWatcher
	walker   *Walker
	root     string
}

// Stats summarizes what is currently indexed.
type Stats struct {
	Files   int
	Indexed int
	Pending int
	Failed  int
	Symbols int
	Edges   int
	Vectors int
}

func NewManager(db *store.DB, registry *analyze.Registry, embedder embed.Embedder, indexes *index.Set, root string) *Manager {
	walker := NewWalker(root, registry, WalkerConfig{})
	return &Manager{
		db:       db,
		registry: registry,
		indexes:  indexes,
		worker:   NewWorker(db, registry, embedder, indexes, root),
		walker:   walker,
		root:     root,
	}
}

// OnMutation registers a callback fired after every index mutation.
// The search engine uses it to drop cached responses. Must be called
// before Start.
func (m *Manager) OnMutation(fn func()) {
	m.worker.onMutation = fn
}

// Start brings the indexes up to date and begins background maintenance.
// When watch is true, filesystem events keep feeding the worker until Stop.
func (m *Manager) Start(ctx context.Context, watch bool) error {
	// Files stuck mid-indexing from a crashed run go back to pending.
	if n, err := m.db.ResetStuckIndexing(ctx); err != nil {
		return fmt.Errorf("failed to reset stuck files: %w", err)
	} else if n > 0 {
		log.Printf("♻️  Reset %d files stuck in indexing state", n)
	}

	if err := m.Hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate indexes: %w", err)
	}
	if err := m.Scan(ctx); err != nil {
		return fmt.Errorf("failed to scan working tree: %w", err)
	}

	m.worker.Start()

	if watch {
		watcher, err := NewFileWatcher(m.root, m.registry, m.walker.Ignores)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		watcher.OnChange(m.handleChanges)
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		m.watcher = watcher
		log.Printf("👀 Watching %s for changes", m.root)
	}
	return nil
}

// Stop shuts down background work. The store stays open for the engine.
func (m *Manager) Stop() {
	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			log.Printf("⚠️  Watcher shutdown: %v", err)
		}
	}
	m.worker.Stop()
}

// WaitForIndexing processes pending files until none remain or the context
// expires. Used by one-shot commands that need a complete index.
func (m *Manager) WaitForIndexing(ctx context.Context) error {
	for {
		files, err := m.db.FilesNeedingIndex(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		if err := m.worker.RunBatch(ctx, 0); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Hydrate loads every persisted entry into the in-memory indexes, grouped
// per file so each file lands as one atomic replacement.
func (m *Manager) Hydrate(ctx context.Context) error {
	start := time.Now()

	files, err := m.db.AllFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	symbols, err := m.db.AllSymbols(ctx)
	if err != nil {
		return err
	}
	edges, err := m.db.AllEdges(ctx)
	if err != nil {
		return err
	}
	chunks, err := m.db.AllChunks(ctx)
	if err != nil {
		return err
	}
	lines, err := m.db.AllLines(ctx)
	if err != nil {
		return err
	}
	shingles, err := m.db.AllShingles(ctx)
	if err != nil {
		return err
	}

	byFile := make(map[int64]*store.FileEntries, len(files))
	entriesFor := func(fileID int64) *store.FileEntries {
		e, ok := byFile[fileID]
		if !ok {
			e = &store.FileEntries{Shingles: make(map[string][]store.Posting)}
			byFile[fileID] = e
		}
		return e
	}

	for _, s := range symbols {
		e := entriesFor(s.FileID)
		e.Symbols = append(e.Symbols, s)
	}
	for _, edge := range edges {
		e := entriesFor(edge.FileID)
		e.Edges = append(e.Edges, edge)
	}
	for _, c := range chunks {
		e := entriesFor(c.FileID)
		e.Chunks = append(e.Chunks, c)
		if vec, dim, err := m.db.EmbeddingFor(ctx, c.ChunkID); err == nil && len(vec) > 0 {
			e.Embeddings = append(e.Embeddings, store.Embedding{ChunkID: c.ChunkID, Dim: dim, Vector: vec})
		}
	}
	for fileID, fileLines := range lines {
		entriesFor(fileID).Lines = fileLines
	}
	for gram, postings := range shingles {
		for _, p := range postings {
			e := entriesFor(p.FileID)
			e.Shingles[gram] = append(e.Shingles[gram], p)
		}
	}

	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.FileID] = f.Path
	}
	loaded := 0
	for fileID, entries := range byFile {
		path, ok := paths[fileID]
		if !ok {
			continue
		}
		m.indexes.ReplaceFile(fileID, path, entries)
		loaded++
	}

	log.Printf("💾 Hydrated %d files from store in %v", loaded, time.Since(start).Round(time.Millisecond))
	return nil
}

// Scan reconciles the store against the working tree: new and changed
// files become pending, files gone from disk are removed everywhere.
func (m *Manager) Scan(ctx context.Context) error {
	known, err := m.db.AllFiles(ctx)
	if err != nil {
		return err
	}
	existing := make(map[string]store.FileRecord, len(known))
	for _, f := range known {
		existing[f.Path] = f
	}

	m.walker.config.ExistingFiles = existing
	result := m.walker.Walk(ctx)
	for _, werr := range result.Errors {
		log.Printf("⚠️  Walk: %v", werr)
	}

	seen := make(map[string]bool, len(result.Files))
	changed := 0
	for _, f := range result.Files {
		seen[f.Path] = true
		_, dirty, err := m.db.UpsertFile(ctx, f.Path, string(f.Lang), f.Hash, f.SizeBytes, f.MtimeUnix)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", f.Path, err)
		}
		if dirty {
			changed++
		}
	}

	removed := 0
	for _, f := range known {
		if !seen[f.Path] {
			if err := m.worker.Remove(ctx, f.Path, f.FileID); err != nil {
				log.Printf("⚠️  %v", err)
				continue
			}
			removed++
		}
	}

	log.Printf("🔍 Scan complete: %d files, %d changed, %d removed", len(result.Files), changed, removed)
	return nil
}

// handleChanges reacts to a debounced batch of watcher events.
func (m *Manager) handleChanges(paths []string) {
	ctx := context.Background()

	for _, relPath := range paths {
		fullPath := filepath.Join(m.root, relPath)
		stat, err := os.Stat(fullPath)
		if os.IsNotExist(err) {
			if rec, err := m.db.GetFile(ctx, relPath); err == nil && rec != nil {
				if err := m.worker.Remove(ctx, relPath, rec.FileID); err != nil {
					log.Printf("⚠️  %v", err)
				}
			}
			continue
		}
		if err != nil || stat.IsDir() {
			continue
		}

		lang := m.registry.Detect(relPath)
		if lang == "" {
			continue
		}
		info, err := m.walker.fileInfo(fullPath)
		if err != nil {
			log.Printf("⚠️  Failed to stat changed file %s: %v", relPath, err)
			continue
		}
		if _, _, err := m.db.UpsertFile(ctx, info.Path, string(info.Lang), info.Hash, info.SizeBytes, info.MtimeUnix); err != nil {
			log.Printf("⚠️  Failed to record change %s: %v", relPath, err)
		}
	}

	// Index the batch right away instead of waiting for the next tick.
	if err := m.worker.RunBatch(ctx, len(paths)); err != nil {
		log.Printf("⚠️  Change batch: %v", err)
	}
}

// Stats reports current index coverage.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	files, err := m.db.AllFiles(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Files:   len(files),
		Symbols: m.indexes.Structural.Count(),
		Edges:   m.indexes.Graph.EdgeCount(),
		Vectors: m.indexes.Semantic.Count(),
	}
	for _, f := range files {
		switch f.IndexStatus {
		case store.StatusIndexed:
			stats.Indexed++
		case store.StatusPending, store.StatusIndexing:
			stats.Pending++
		case store.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
