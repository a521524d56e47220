package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/samueljklee/codescout/internal/analyze"
)

const watchDebounce = 500 * time.Millisecond

// FileWatcher turns raw filesystem events into debounced batches of
// changed repo-relative paths. A burst of writes to one file yields a
// single callback.
type FileWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	registry *analyze.Registry
	ignores  func(string) bool
	onChange func([]string)

	mu      sync.Mutex
	pending map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileWatcher(root string, registry *analyze.Registry, ignores func(string) bool) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		root:     root,
		watcher:  watcher,
		registry: registry,
		ignores:  ignores,
		pending:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// OnChange sets the callback invoked with batches of changed paths.
func (fw *FileWatcher) OnChange(callback func([]string)) {
	fw.onChange = callback
}

// Start registers every non-ignored directory and begins processing events.
func (fw *FileWatcher) Start() error {
	err := filepath.WalkDir(fw.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(fw.root, path)
		if err != nil {
			return nil
		}
		if relPath != "." && fw.ignores(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fw.watcher.Add(path); err != nil {
				log.Printf("⚠️  Failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk repo: %w", err)
	}

	fw.wg.Add(2)
	go fw.eventLoop()
	go fw.debounceLoop()
	return nil
}

func (fw *FileWatcher) Stop() error {
	fw.cancel()
	fw.wg.Wait()
	return fw.watcher.Close()
}

func (fw *FileWatcher) eventLoop() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(fw.root, event.Name)
	if err != nil {
		return
	}
	if fw.ignores(relPath) {
		return
	}

	// New directories need their own watch before their files emit events.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.watcher.Add(event.Name); err != nil {
				log.Printf("⚠️  Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	// Deletions of indexed files matter even when the extension no longer
	// resolves; everything else must be an indexable type.
	if fw.registry.Detect(event.Name) == "" && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.mu.Lock()
		fw.pending[relPath] = true
		fw.mu.Unlock()
	}
}

func (fw *FileWatcher) debounceLoop() {
	defer fw.wg.Done()

	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case <-ticker.C:
			fw.flushPending()
		}
	}
}

func (fw *FileWatcher) flushPending() {
	fw.mu.Lock()
	if len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.pending))
	for path := range fw.pending {
		paths = append(paths, path)
	}
	fw.pending = make(map[string]bool)
	fw.mu.Unlock()

	if fw.onChange != nil {
		log.Printf("📝 File watcher detected %d changed files", len(paths))
		fw.onChange(paths)
	}
}
