package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// IndexStatus represents the indexing state of a file.
type IndexStatus string

const (
	StatusPending  IndexStatus = "pending"  // Needs (re-)indexing
	StatusIndexing IndexStatus = "indexing" // Currently being indexed
	StatusIndexed  IndexStatus = "indexed"  // Successfully indexed
	StatusFailed   IndexStatus = "failed"   // Indexing failed
)

// EdgeType classifies a dependency edge between two symbols.
type EdgeType string

const (
	EdgeImport  EdgeType = "import"
	EdgeCall    EdgeType = "call"
	EdgeInherit EdgeType = "inherits"
	EdgeTypeRef EdgeType = "type-reference"
)

// FileRecord represents a tracked file.
type FileRecord struct {
	FileID      int64
	Path        string
	Lang        string
	Hash        string
	SizeBytes   int64
	MtimeUnix   int64
	Deleted     bool
	IndexStatus IndexStatus
	IndexedAt   int64
	IndexError  string
}

// Symbol is a named code entity extracted from a file.
type Symbol struct {
	SymbolID  string
	FileID    int64
	FilePath  string
	Lang      string
	Name      string
	Kind      string
	Signature string
	StartLine int
	EndLine   int
	Docstring string
}

// Edge is a directed dependency from a source symbol to a target name.
// The target is stored by qualified name and resolved against the live
// symbol table at query time, so indexing order never leaves stale links.
type Edge struct {
	EdgeID     int64
	FileID     int64
	FilePath   string
	SourceID   string
	TargetName string
	Type       EdgeType
	Line       int
}

// Chunk is a unit of embeddable content.
type Chunk struct {
	ChunkID    string
	FileID     int64
	FilePath   string
	Lang       string
	SymbolID   string
	SymbolName string
	Kind       string
	StartLine  int
	EndLine    int
	Text       string
}

// Embedding is the stored vector for a chunk.
type Embedding struct {
	ChunkID string
	Dim     int
	Vector  []byte
}

// Posting is one trigram occurrence in the literal index.
type Posting struct {
	FileID int64
	Line   int
	Col    int
}

// CorruptionError indicates the persisted store failed its integrity check.
// The store is deleted and rebuilt from source; other indexes are unaffected.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("index store %s is corrupted: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// DB provides persistence for all four local indexes.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store at dbPath and verifies its integrity.
// A failed integrity check deletes the store and recreates it empty; the
// caller is expected to schedule a full rebuild in that case. The returned
// bool reports whether a rebuild is required.
func Open(ctx context.Context, dbPath string) (*DB, bool, error) {
	d, err := open(ctx, dbPath)
	if err == nil {
		return d, false, nil
	}

	var corr *CorruptionError
	if !errors.As(err, &corr) {
		return nil, false, err
	}

	// Corrupted on load: rebuild this store only.
	if rmErr := os.Remove(dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, false, fmt.Errorf("failed to remove corrupted store: %w", rmErr)
	}
	d, err = open(ctx, dbPath)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func open(ctx context.Context, dbPath string) (*DB, error) {
	// WAL mode allows concurrent readers while the indexer writes.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers well
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	d := &DB{db: db, path: dbPath}

	if err := d.checkIntegrity(ctx); err != nil {
		db.Close()
		return nil, &CorruptionError{Path: dbPath, Err: err}
	}

	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the store.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the filesystem path of the store.
func (d *DB) Path() string {
	return d.path
}

// checkIntegrity runs sqlite's integrity check on the opened database.
func (d *DB) checkIntegrity(ctx context.Context) error {
	var result string
	if err := d.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return err
	}
	if !strings.EqualFold(result, "ok") {
		return fmt.Errorf("integrity_check: %s", result)
	}
	return nil
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	-- File tracking and per-file index state
	CREATE TABLE IF NOT EXISTS files (
		file_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		path         TEXT NOT NULL UNIQUE,
		lang         TEXT NOT NULL,
		hash         TEXT NOT NULL,
		size_bytes   INTEGER NOT NULL,
		mtime_unix   INTEGER NOT NULL,
		deleted      INTEGER NOT NULL DEFAULT 0,
		index_status TEXT NOT NULL DEFAULT 'pending',
		indexed_at   INTEGER,
		index_error  TEXT
	);

	-- Symbol table (structural index)
	CREATE TABLE IF NOT EXISTS symbols (
		symbol_id  TEXT PRIMARY KEY,
		file_id    INTEGER NOT NULL,
		file_path  TEXT NOT NULL,
		lang       TEXT NOT NULL,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL,
		signature  TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line   INTEGER NOT NULL,
		docstring  TEXT,
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
	);

	-- Edge table (relationship graph index)
	CREATE TABLE IF NOT EXISTS edges (
		edge_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id     INTEGER NOT NULL,
		file_path   TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		target_name TEXT NOT NULL,
		edge_type   TEXT NOT NULL,
		line        INTEGER NOT NULL,
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
	);

	-- Chunks (semantic index)
	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id    TEXT PRIMARY KEY,
		file_id     INTEGER NOT NULL,
		file_path   TEXT NOT NULL,
		lang        TEXT NOT NULL,
		symbol_id   TEXT,
		symbol_name TEXT,
		kind        TEXT NOT NULL,
		start_line  INTEGER NOT NULL,
		end_line    INTEGER NOT NULL,
		text        TEXT NOT NULL,
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
	);

	-- Vector table (semantic index)
	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id TEXT PRIMARY KEY,
		dim      INTEGER NOT NULL,
		vector   BLOB NOT NULL,
		FOREIGN KEY (chunk_id) REFERENCES chunks(chunk_id) ON DELETE CASCADE
	);

	-- Literal shingles (literal index)
	CREATE TABLE IF NOT EXISTS lines (
		file_id INTEGER NOT NULL,
		line    INTEGER NOT NULL,
		text    TEXT NOT NULL,
		PRIMARY KEY (file_id, line),
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
	) WITHOUT ROWID;

	CREATE TABLE IF NOT EXISTS shingles (
		gram    TEXT NOT NULL,
		file_id INTEGER NOT NULL,
		line    INTEGER NOT NULL,
		col     INTEGER NOT NULL,
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_files_status ON files(index_status);
	CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS idx_edges_file ON edges(file_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_name);
	CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_id);
	CREATE INDEX IF NOT EXISTS idx_shingles_gram ON shingles(gram);
	CREATE INDEX IF NOT EXISTS idx_shingles_file ON shingles(file_id);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// UpsertFile inserts or updates a file record. Returns the file ID and true
// if the file is new or its hash changed (needs indexing).
func (d *DB) UpsertFile(ctx context.Context, path, lang, hash string, sizeBytes, mtimeUnix int64) (int64, bool, error) {
	var existingHash, existingStatus string
	err := d.db.QueryRowContext(ctx,
		`SELECT hash, index_status FROM files WHERE path = ?`, path,
	).Scan(&existingHash, &existingStatus)

	needsIndexing := false
	newStatus := existingStatus

	switch {
	case err == sql.ErrNoRows:
		needsIndexing = true
		newStatus = string(StatusPending)
	case err != nil:
		return 0, false, fmt.Errorf("failed to check existing file: %w", err)
	case existingHash != hash:
		needsIndexing = true
		newStatus = string(StatusPending)
	case existingStatus == string(StatusFailed):
		// Previous indexing failed - retry
		needsIndexing = true
		newStatus = string(StatusPending)
	}

	query := `
		INSERT INTO files (path, lang, hash, size_bytes, mtime_unix, deleted, index_status, indexed_at, index_error)
		VALUES (?, ?, ?, ?, ?, 0, ?, NULL, NULL)
		ON CONFLICT(path) DO UPDATE SET
			lang = excluded.lang,
			hash = excluded.hash,
			size_bytes = excluded.size_bytes,
			mtime_unix = excluded.mtime_unix,
			deleted = 0,
			index_status = ?,
			indexed_at = CASE WHEN ? = 'pending' THEN NULL ELSE indexed_at END,
			index_error = CASE WHEN ? = 'pending' THEN NULL ELSE index_error END
	`
	if _, err := d.db.ExecContext(ctx, query, path, lang, hash, sizeBytes, mtimeUnix, newStatus, newStatus, newStatus, newStatus); err != nil {
		return 0, false, fmt.Errorf("failed to upsert file: %w", err)
	}

	var fileID int64
	if err := d.db.QueryRowContext(ctx, `SELECT file_id FROM files WHERE path = ?`, path).Scan(&fileID); err != nil {
		return 0, false, fmt.Errorf("failed to read file id: %w", err)
	}
	return fileID, needsIndexing, nil
}

// GetFile retrieves a file record by path.
func (d *DB) GetFile(ctx context.Context, path string) (*FileRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT file_id, path, lang, hash, size_bytes, mtime_unix, deleted, index_status, indexed_at, index_error
		FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*FileRecord, error) {
	var f FileRecord
	var deleted int
	var indexedAt sql.NullInt64
	var indexError sql.NullString
	err := row.Scan(&f.FileID, &f.Path, &f.Lang, &f.Hash, &f.SizeBytes, &f.MtimeUnix, &deleted, &f.IndexStatus, &indexedAt, &indexError)
	if err != nil {
		return nil, err
	}
	f.Deleted = deleted == 1
	if indexedAt.Valid {
		f.IndexedAt = indexedAt.Int64
	}
	if indexError.Valid {
		f.IndexError = indexError.String
	}
	return &f, nil
}

// AllFiles returns every file record, including deleted ones.
func (d *DB) AllFiles(ctx context.Context) ([]FileRecord, error) {
	return d.queryFiles(ctx, `
		SELECT file_id, path, lang, hash, size_bytes, mtime_unix, deleted, index_status, indexed_at, index_error
		FROM files ORDER BY path`)
}

// FilesNeedingIndex returns files with status 'pending'.
func (d *DB) FilesNeedingIndex(ctx context.Context) ([]FileRecord, error) {
	return d.queryFiles(ctx, `
		SELECT file_id, path, lang, hash, size_bytes, mtime_unix, deleted, index_status, indexed_at, index_error
		FROM files WHERE deleted = 0 AND index_status = 'pending' ORDER BY path`)
}

func (d *DB) queryFiles(ctx context.Context, query string, args ...any) ([]FileRecord, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// MarkIndexing marks a file as currently being indexed.
func (d *DB) MarkIndexing(ctx context.Context, path string) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE files SET index_status = ? WHERE path = ?`, string(StatusIndexing), path)
	return err
}

// MarkIndexed marks a file as successfully indexed.
func (d *DB) MarkIndexed(ctx context.Context, path string) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE files SET index_status = ?, indexed_at = ?, index_error = NULL WHERE path = ?`,
		string(StatusIndexed), time.Now().Unix(), path)
	return err
}

// MarkFailed marks a file as failed with an error message. The file's
// previous index entries stay visible to queries.
func (d *DB) MarkFailed(ctx context.Context, path, errorMsg string) error {
	if len(errorMsg) > 500 {
		errorMsg = errorMsg[:500]
	}
	_, err := d.db.ExecContext(ctx,
		`UPDATE files SET index_status = ?, index_error = ? WHERE path = ?`,
		string(StatusFailed), errorMsg, path)
	return err
}

// ResetStuckIndexing resets files stuck in 'indexing' state back to 'pending'.
// Recovers from crashes that left files mid-update.
func (d *DB) ResetStuckIndexing(ctx context.Context) (int, error) {
	result, err := d.db.ExecContext(ctx,
		`UPDATE files SET index_status = ? WHERE index_status = ?`,
		string(StatusPending), string(StatusIndexing))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck files: %w", err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// FileEntries holds everything one file contributes to the four indexes.
type FileEntries struct {
	Symbols    []Symbol
	Edges      []Edge
	Chunks     []Chunk
	Embeddings []Embedding
	Lines      []string            // 1-indexed at position+1
	Shingles   map[string][]Posting
}

// ReplaceFileEntries atomically replaces every index entry for a file in one
// transaction. A concurrent reader sees either the old complete set or the
// new complete set, never a mix.
func (d *DB) ReplaceFileEntries(ctx context.Context, fileID int64, entries *FileEntries) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"symbols", "edges", "chunks", "lines", "shingles"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_id = ?`, table), fileID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT chunk_id FROM chunks WHERE file_id = ?)`, fileID); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	for _, s := range entries.Symbols {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO symbols (symbol_id, file_id, file_path, lang, name, kind, signature, start_line, end_line, docstring)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SymbolID, fileID, s.FilePath, s.Lang, s.Name, s.Kind, s.Signature, s.StartLine, s.EndLine, s.Docstring); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", s.Name, err)
		}
	}

	for _, e := range entries.Edges {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edges (file_id, file_path, source_id, target_name, edge_type, line)
			VALUES (?, ?, ?, ?, ?, ?)`,
			fileID, e.FilePath, e.SourceID, e.TargetName, string(e.Type), e.Line); err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	for _, c := range entries.Chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_id, file_id, file_path, lang, symbol_id, symbol_name, kind, start_line, end_line, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ChunkID, fileID, c.FilePath, c.Lang, c.SymbolID, c.SymbolName, c.Kind, c.StartLine, c.EndLine, c.Text); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	for _, e := range entries.Embeddings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (chunk_id, dim, vector) VALUES (?, ?, ?)`,
			e.ChunkID, e.Dim, e.Vector); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	for i, text := range entries.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lines (file_id, line, text) VALUES (?, ?, ?)`,
			fileID, i+1, text); err != nil {
			return fmt.Errorf("failed to insert line: %w", err)
		}
	}

	for gram, postings := range entries.Shingles {
		for _, p := range postings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shingles (gram, file_id, line, col) VALUES (?, ?, ?, ?)`,
				gram, fileID, p.Line, p.Col); err != nil {
				return fmt.Errorf("failed to insert shingle: %w", err)
			}
		}
	}

	return tx.Commit()
}

// RemoveFile deletes a file and every index entry keyed to it in one
// transaction, so no dangling references are ever visible.
func (d *DB) RemoveFile(ctx context.Context, path string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin remove: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowContext(ctx, `SELECT file_id FROM files WHERE path = ?`, path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up file: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT chunk_id FROM chunks WHERE file_id = ?)`, fileID); err != nil {
		return fmt.Errorf("failed to remove embeddings: %w", err)
	}
	for _, table := range []string{"symbols", "edges", "chunks", "lines", "shingles"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_id = ?`, table), fileID); err != nil {
			return fmt.Errorf("failed to remove %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return tx.Commit()
}

// AllSymbols streams every symbol row, ordered for deterministic loads.
func (d *DB) AllSymbols(ctx context.Context) ([]Symbol, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT symbol_id, file_id, file_path, lang, name, kind, signature, start_line, end_line, docstring
		FROM symbols ORDER BY file_path, start_line`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var s Symbol
		var doc sql.NullString
		if err := rows.Scan(&s.SymbolID, &s.FileID, &s.FilePath, &s.Lang, &s.Name, &s.Kind, &s.Signature, &s.StartLine, &s.EndLine, &doc); err != nil {
			return nil, err
		}
		if doc.Valid {
			s.Docstring = doc.String
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// AllEdges returns every edge row.
func (d *DB) AllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT edge_id, file_id, file_path, source_id, target_name, edge_type, line
		FROM edges ORDER BY file_path, line`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var typ string
		if err := rows.Scan(&e.EdgeID, &e.FileID, &e.FilePath, &e.SourceID, &e.TargetName, &typ, &e.Line); err != nil {
			return nil, err
		}
		e.Type = EdgeType(typ)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AllLines returns every stored line keyed by file ID.
func (d *DB) AllLines(ctx context.Context) (map[int64][]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT file_id, line, text FROM lines ORDER BY file_id, line`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make(map[int64][]string)
	for rows.Next() {
		var fileID int64
		var lineNo int
		var text string
		if err := rows.Scan(&fileID, &lineNo, &text); err != nil {
			return nil, err
		}
		for len(lines[fileID]) < lineNo {
			lines[fileID] = append(lines[fileID], "")
		}
		lines[fileID][lineNo-1] = text
	}
	return lines, rows.Err()
}

// AllShingles returns every trigram posting keyed by gram.
func (d *DB) AllShingles(ctx context.Context) (map[string][]Posting, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT gram, file_id, line, col FROM shingles ORDER BY file_id, line, col`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grams := make(map[string][]Posting)
	for rows.Next() {
		var gram string
		var p Posting
		if err := rows.Scan(&gram, &p.FileID, &p.Line, &p.Col); err != nil {
			return nil, err
		}
		grams[gram] = append(grams[gram], p)
	}
	return grams, rows.Err()
}

// AllChunks returns every chunk.
func (d *DB) AllChunks(ctx context.Context) ([]Chunk, error) {
	return d.queryChunks(ctx, `
		SELECT chunk_id, file_id, file_path, lang, symbol_id, symbol_name, kind, start_line, end_line, text
		FROM chunks ORDER BY file_path, start_line`)
}

func (d *DB) queryChunks(ctx context.Context, query string, args ...any) ([]Chunk, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var symbolID, symbolName sql.NullString
		if err := rows.Scan(&c.ChunkID, &c.FileID, &c.FilePath, &c.Lang, &symbolID, &symbolName, &c.Kind, &c.StartLine, &c.EndLine, &c.Text); err != nil {
			return nil, err
		}
		if symbolID.Valid {
			c.SymbolID = symbolID.String
		}
		if symbolName.Valid {
			c.SymbolName = symbolName.String
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// EmbeddingFor returns the stored vector for a chunk, or nil if absent.
func (d *DB) EmbeddingFor(ctx context.Context, chunkID string) ([]byte, int, error) {
	var vector []byte
	var dim int
	err := d.db.QueryRowContext(ctx,
		`SELECT vector, dim FROM embeddings WHERE chunk_id = ?`, chunkID).Scan(&vector, &dim)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return vector, dim, nil
}
