package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, rebuild, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if rebuild {
		t.Fatal("fresh store requested a rebuild")
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertFileTracksChanges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, dirty, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !dirty {
		t.Fatal("new file not marked for indexing")
	}

	// Same hash: nothing to do.
	id2, dirty, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if dirty {
		t.Fatal("unchanged file marked for indexing")
	}
	if id2 != id {
		t.Fatalf("file id changed on upsert: %d vs %d", id2, id)
	}

	// Changed hash: back to pending.
	_, dirty, err = db.UpsertFile(ctx, "a.go", "go", "hash2", 120, 1010)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !dirty {
		t.Fatal("changed file not marked for indexing")
	}

	files, err := db.FilesNeedingIndex(ctx)
	if err != nil {
		t.Fatalf("pending files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "a.go" {
		t.Fatalf("pending = %+v, want a.go", files)
	}
}

func TestUpsertFileRetriesFailed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.MarkFailed(ctx, "a.go", "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	// Re-seeing the same content after a failure still retries it.
	_, dirty, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !dirty {
		t.Fatal("failed file not queued for retry")
	}
}

func TestMarkFailedTruncatesLongErrors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.MarkFailed(ctx, "a.go", strings.Repeat("x", 2000)); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	rec, err := db.GetFile(ctx, "a.go")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if rec.IndexStatus != StatusFailed {
		t.Fatalf("status = %s, want failed", rec.IndexStatus)
	}
	if len(rec.IndexError) != 500 {
		t.Fatalf("error length = %d, want truncated to 500", len(rec.IndexError))
	}
}

func TestResetStuckIndexing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.MarkIndexing(ctx, "a.go"); err != nil {
		t.Fatalf("mark indexing: %v", err)
	}

	n, err := db.ResetStuckIndexing(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset %d files, want 1", n)
	}
	rec, err := db.GetFile(ctx, "a.go")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if rec.IndexStatus != StatusPending {
		t.Fatalf("status = %s, want pending", rec.IndexStatus)
	}
}

func testEntries(fileID int64, path string) *FileEntries {
	return &FileEntries{
		Symbols: []Symbol{{
			SymbolID: path + ":foo:1", FileID: fileID, FilePath: path, Lang: "go",
			Name: "foo", Kind: "function", Signature: "func foo()", StartLine: 1, EndLine: 3,
		}},
		Edges: []Edge{{
			FileID: fileID, FilePath: path, SourceID: path + ":foo:1",
			TargetName: "bar", Type: EdgeCall, Line: 2,
		}},
		Chunks: []Chunk{{
			ChunkID: path + "-c1", FileID: fileID, FilePath: path, Lang: "go",
			SymbolID: path + ":foo:1", SymbolName: "foo", Kind: "function",
			StartLine: 1, EndLine: 3, Text: "func foo() {\n\tbar()\n}",
		}},
		Embeddings: []Embedding{{ChunkID: path + "-c1", Dim: 2, Vector: []byte{0, 0, 128, 63, 0, 0, 0, 0}}},
		Lines:      []string{"func foo() {", "\tbar()", "}"},
		Shingles:   map[string][]Posting{"foo": {{FileID: fileID, Line: 1, Col: 5}}},
	}
}

func TestReplaceFileEntriesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fileID, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.ReplaceFileEntries(ctx, fileID, testEntries(fileID, "a.go")); err != nil {
		t.Fatalf("replace entries: %v", err)
	}

	symbols, err := db.AllSymbols(ctx)
	if err != nil {
		t.Fatalf("all symbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Name != "foo" {
		t.Fatalf("symbols = %+v, want foo", symbols)
	}
	edges, err := db.AllEdges(ctx)
	if err != nil {
		t.Fatalf("all edges: %v", err)
	}
	if len(edges) != 1 || edges[0].TargetName != "bar" || edges[0].Type != EdgeCall {
		t.Fatalf("edges = %+v", edges)
	}
	lines, err := db.AllLines(ctx)
	if err != nil {
		t.Fatalf("all lines: %v", err)
	}
	if got := lines[fileID]; len(got) != 3 || got[1] != "\tbar()" {
		t.Fatalf("lines = %q", got)
	}
	vec, dim, err := db.EmbeddingFor(ctx, "a.go-c1")
	if err != nil {
		t.Fatalf("embedding: %v", err)
	}
	if dim != 2 || len(vec) != 8 {
		t.Fatalf("embedding dim=%d len=%d", dim, len(vec))
	}
}

func TestReplaceFileEntriesIsAtomicSwap(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fileID, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.ReplaceFileEntries(ctx, fileID, testEntries(fileID, "a.go")); err != nil {
		t.Fatalf("replace entries: %v", err)
	}

	// Second replacement with different content fully supersedes the first.
	next := testEntries(fileID, "a.go")
	next.Symbols[0].Name = "baz"
	next.Symbols[0].SymbolID = "a.go:baz:1"
	next.Chunks[0].SymbolID = "a.go:baz:1"
	next.Chunks[0].SymbolName = "baz"
	if err := db.ReplaceFileEntries(ctx, fileID, next); err != nil {
		t.Fatalf("replace entries: %v", err)
	}

	symbols, err := db.AllSymbols(ctx)
	if err != nil {
		t.Fatalf("all symbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Name != "baz" {
		t.Fatalf("symbols = %+v, want only baz", symbols)
	}
}

func TestRemoveFileClearsEverything(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fileID, _, err := db.UpsertFile(ctx, "a.go", "go", "hash1", 100, 1000)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.ReplaceFileEntries(ctx, fileID, testEntries(fileID, "a.go")); err != nil {
		t.Fatalf("replace entries: %v", err)
	}
	if err := db.RemoveFile(ctx, "a.go"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if rec, err := db.GetFile(ctx, "a.go"); err == nil && rec != nil {
		t.Fatalf("file record survived removal: %+v", rec)
	}
	symbols, err := db.AllSymbols(ctx)
	if err != nil {
		t.Fatalf("all symbols: %v", err)
	}
	if len(symbols) != 0 {
		t.Fatalf("symbols survived removal: %+v", symbols)
	}
	shingles, err := db.AllShingles(ctx)
	if err != nil {
		t.Fatalf("all shingles: %v", err)
	}
	if len(shingles) != 0 {
		t.Fatalf("shingles survived removal: %+v", shingles)
	}

	// Removing an unknown path is a no-op.
	if err := db.RemoveFile(ctx, "ghost.go"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}
