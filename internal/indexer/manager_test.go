package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samueljklee/codescout/internal/analyze"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/store"
)

func newTestManager(t *testing.T, root string) (*Manager, *index.Set, *store.DB) {
	t.Helper()

	db, _, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	indexes := index.NewSet()
	m := NewManager(db, analyze.NewRegistry(), embed.NewHashEmbedder(64), indexes, root)
	return m, indexes, db
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanAndIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def foo():\n    pass\n")
	writeFile(t, root, "docs/readme.md", "# Overview\n\nNotes.\n")

	m, indexes, _ := newTestManager(t, root)
	ctx := context.Background()

	if err := m.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatalf("WaitForIndexing failed: %v", err)
	}

	if got := indexes.Structural.Lookup("foo"); len(got) != 1 {
		t.Errorf("Lookup(foo) = %d symbols, want 1", len(got))
	}
	hits, err := indexes.Literal.Search("def foo", 0)
	if err != nil || len(hits) != 1 {
		t.Errorf("literal search = %d hits (err %v), want 1", len(hits), err)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Files != 2 || stats.Indexed != 2 {
		t.Errorf("stats = %+v, want 2 files indexed", stats)
	}
}

// Adding a caller after the callee was indexed must surface it as a
// dependent without reindexing the callee.
func TestLateArrivingDependent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def foo():\n    pass\n")

	m, indexes, _ := newTestManager(t, root)
	ctx := context.Background()

	if err := m.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatalf("WaitForIndexing failed: %v", err)
	}
	if tr := indexes.Graph.Dependents("foo", 3); len(tr.Neighbors) != 0 {
		t.Fatalf("dependents before b.py = %d, want 0", len(tr.Neighbors))
	}

	writeFile(t, root, "b.py", "from a import foo\n\nfoo()\n")
	if err := m.Scan(ctx); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatalf("WaitForIndexing failed: %v", err)
	}

	tr := indexes.Graph.Dependents("foo", 3)
	if len(tr.Neighbors) != 1 {
		t.Fatalf("dependents after b.py = %d, want 1", len(tr.Neighbors))
	}
	if tr.Neighbors[0].Symbol.FilePath != "b.py" {
		t.Errorf("dependent path = %q, want b.py", tr.Neighbors[0].Symbol.FilePath)
	}
}

func TestModifiedFileIsReplaced(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "util.py", "def old_name():\n    pass\n")

	m, indexes, _ := newTestManager(t, root)
	ctx := context.Background()

	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatal(err)
	}
	if got := indexes.Structural.Lookup("old_name"); len(got) != 1 {
		t.Fatalf("expected old_name before edit")
	}

	writeFile(t, root, "util.py", "def new_name():\n    pass\n")
	// Bump mtime so the walker's fast path notices the change.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(root, "util.py"), later, later); err != nil {
		t.Fatal(err)
	}
	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatal(err)
	}

	if got := indexes.Structural.Lookup("old_name"); len(got) != 0 {
		t.Errorf("stale symbol old_name survived edit")
	}
	if got := indexes.Structural.Lookup("new_name"); len(got) != 1 {
		t.Errorf("new_name missing after edit")
	}
}

func TestDeletedFileIsRemoved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gone.py", "def vanishing():\n    pass\n")

	m, indexes, db := newTestManager(t, root)
	ctx := context.Background()

	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(root, "gone.py")); err != nil {
		t.Fatal(err)
	}
	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	if got := indexes.Structural.Lookup("vanishing"); len(got) != 0 {
		t.Errorf("deleted file's symbol still indexed")
	}
	files, err := db.AllFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("deleted file still tracked: %+v", files)
	}
}

func TestHydrateRestoresIndexes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc.py", "def handler():\n    helper()\n\ndef helper():\n    pass\n")

	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	db, _, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(db, analyze.NewRegistry(), embed.NewHashEmbedder(64), index.NewSet(), root)
	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForIndexing(ctx); err != nil {
		t.Fatal(err)
	}
	db.Close()

	// Fresh process: same store, empty memory.
	db2, rebuild, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	if rebuild {
		t.Fatal("store unexpectedly flagged for rebuild")
	}

	indexes := index.NewSet()
	m2 := NewManager(db2, analyze.NewRegistry(), embed.NewHashEmbedder(64), indexes, root)
	if err := m2.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	if got := indexes.Structural.Lookup("handler"); len(got) != 1 {
		t.Errorf("handler not restored from store")
	}
	if tr := indexes.Graph.Dependents("helper", 2); len(tr.Neighbors) != 1 {
		t.Errorf("call edge not restored: %d dependents", len(tr.Neighbors))
	}
	hits, err := indexes.Literal.Search("helper()", 0)
	if err != nil || len(hits) == 0 {
		t.Errorf("literal index not restored (err %v)", err)
	}
}
