package indexer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samueljklee/codescout/internal/analyze"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/store"
)

const lockStripes = 64

// Worker indexes files in the background: parse, embed, then one atomic
// replacement of the file's entries in the store and in memory. A striped
// per-path lock serializes concurrent updates to the same file while
// letting distinct files proceed in parallel.
type Worker struct {
	db       *store.DB
	registry *analyze.Registry
	embedder embed.Embedder
	indexes  *index.Set
	root     string

	locks [lockStripes]sync.Mutex

	// onMutation fires after any index mutation (replace or remove).
	onMutation func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	batchSize    int
	tickInterval time.Duration
}

func NewWorker(db *store.DB, registry *analyze.Registry, embedder embed.Embedder, indexes *index.Set, root string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		db:           db,
		registry:     registry,
		embedder:     embedder,
		indexes:      indexes,
		root:         root,
		ctx:          ctx,
		cancel:       cancel,
		batchSize:    20,
		tickInterval: 5 * time.Second,
	}
}

// Start begins the background indexing loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.indexingLoop()
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) indexingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	log.Printf("🔄 Background indexing worker started (batch size: %d, interval: %v)", w.batchSize, w.tickInterval)

	for {
		select {
		case <-w.ctx.Done():
			log.Println("🛑 Background indexing worker stopped")
			return
		case <-ticker.C:
			w.processPending(w.ctx, w.batchSize)
		}
	}
}

// RunBatch indexes up to maxFiles pending files immediately. Used for
// startup freshness before the engine starts answering queries.
func (w *Worker) RunBatch(ctx context.Context, maxFiles int) error {
	return w.processPending(ctx, maxFiles)
}

func (w *Worker) processPending(ctx context.Context, maxFiles int) error {
	files, err := w.db.FilesNeedingIndex(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to get pending files: %v", err)
		return fmt.Errorf("failed to get pending files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}
	if maxFiles > 0 && len(files) > maxFiles {
		files = files[:maxFiles]
	}

	log.Printf("📦 Processing batch of %d files", len(files))
	for _, file := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.ProcessFile(ctx, file); err != nil {
			log.Printf("❌ Failed to index %s: %v", file.Path, err)
		}
	}
	return nil
}

// ProcessFile runs one file through the full pipeline. Safe to call
// concurrently; updates to the same path are serialized.
func (w *Worker) ProcessFile(ctx context.Context, file store.FileRecord) error {
	lock := &w.locks[stripeFor(file.Path)]
	lock.Lock()
	defer lock.Unlock()

	if err := w.db.MarkIndexing(ctx, file.Path); err != nil {
		return fmt.Errorf("failed to mark as indexing: %w", err)
	}

	content, err := os.ReadFile(filepath.Join(w.root, file.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return w.Remove(ctx, file.Path, file.FileID)
		}
		return w.markFailed(ctx, file.Path, fmt.Errorf("failed to read file: %w", err))
	}

	parsed, parseErr := w.registry.Parse(file.Path, content)
	if parseErr != nil {
		var pf *analyze.ParseFailure
		if !errors.As(parseErr, &pf) {
			return w.markFailed(ctx, file.Path, parseErr)
		}
		// Unparseable files stay literally and semantically searchable
		// through the window fallback; they just contribute no symbols.
		parsed = analyze.FallbackChunks(file.Path, string(file.Lang), content)
	}

	entries := w.buildEntries(ctx, file, parsed, content)

	if err := w.db.ReplaceFileEntries(ctx, file.FileID, entries); err != nil {
		return w.markFailed(ctx, file.Path, fmt.Errorf("failed to persist entries: %w", err))
	}
	w.indexes.ReplaceFile(file.FileID, file.Path, entries)
	w.notifyMutation()

	if parseErr != nil {
		return w.markFailed(ctx, file.Path, parseErr)
	}
	if err := w.db.MarkIndexed(ctx, file.Path); err != nil {
		return fmt.Errorf("failed to mark as indexed: %w", err)
	}

	log.Printf("✅ Indexed %s (%d symbols, %d edges, %d chunks)",
		file.Path, len(entries.Symbols), len(entries.Edges), len(entries.Chunks))
	return nil
}

// buildEntries assembles the complete replacement set for one file.
func (w *Worker) buildEntries(ctx context.Context, file store.FileRecord, parsed *analyze.ParseResult, content []byte) *store.FileEntries {
	entries := &store.FileEntries{
		Symbols: parsed.Symbols,
		Edges:   parsed.Edges,
		Chunks:  parsed.Chunks,
	}
	for i := range entries.Symbols {
		entries.Symbols[i].FileID = file.FileID
	}
	for i := range entries.Edges {
		entries.Edges[i].FileID = file.FileID
	}
	for i := range entries.Chunks {
		entries.Chunks[i].FileID = file.FileID
	}

	entries.Lines = index.SplitLines(content)
	entries.Shingles = index.ExtractShingles(file.FileID, entries.Lines)

	if len(entries.Chunks) > 0 {
		texts := make([]string, len(entries.Chunks))
		for i, c := range entries.Chunks {
			texts[i] = c.Text
		}
		vectors, err := w.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// Embeddings are best-effort; the other indexes still update.
			log.Printf("⚠️  Failed to embed %s: %v", file.Path, err)
		} else {
			for i, vec := range vectors {
				entries.Embeddings = append(entries.Embeddings, store.Embedding{
					ChunkID: entries.Chunks[i].ChunkID,
					Dim:     w.embedder.Dimension(),
					Vector:  index.EncodeVector(vec),
				})
			}
		}
	}
	return entries
}

// Remove drops a deleted file from the store and every index.
func (w *Worker) Remove(ctx context.Context, path string, fileID int64) error {
	if err := w.db.RemoveFile(ctx, path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	w.indexes.RemoveFile(fileID)
	w.notifyMutation()
	log.Printf("🗑️  Removed %s from indexes", path)
	return nil
}

func (w *Worker) notifyMutation() {
	if w.onMutation != nil {
		w.onMutation()
	}
}

func (w *Worker) markFailed(ctx context.Context, path string, cause error) error {
	if err := w.db.MarkFailed(ctx, path, cause.Error()); err != nil {
		return fmt.Errorf("failed to record failure for %s: %w", path, err)
	}
	return cause
}

func stripeFor(path string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(path))
	return h.Sum32() % lockStripes
}
