package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samueljklee/codescout/internal/store"
)

// MinLiteralQuery is the shortest literal query the trigram index can
// answer; anything shorter matches too much to be useful.
const MinLiteralQuery = 3

// LiteralHit is one exact occurrence of a query string.
type LiteralHit struct {
	FileID   int64
	Path     string
	Line     int
	Col      int
	LineText string
}

// Literal is an exact-match index over 3-byte shingles. Candidate positions
// come from the query's first trigram; each is verified against the stored
// line, so a hit is always a true substring occurrence and recall is total
// for any indexed content.
type Literal struct {
	mu    sync.RWMutex
	paths map[int64]string
	lines map[int64][]string
	grams map[string]map[int64][]store.Posting
}

func NewLiteral() *Literal {
	return &Literal{
		paths: make(map[int64]string),
		lines: make(map[int64][]string),
		grams: make(map[string]map[int64][]store.Posting),
	}
}

// ExtractShingles emits every 3-byte shingle of each line with its
// position. Shared by the index and the persistence layer so the stored
// postings always agree with the in-memory ones.
func ExtractShingles(fileID int64, lines []string) map[string][]store.Posting {
	out := make(map[string][]store.Posting)
	for i, line := range lines {
		for col := 0; col+MinLiteralQuery <= len(line); col++ {
			gram := line[col : col+MinLiteralQuery]
			out[gram] = append(out[gram], store.Posting{
				FileID: fileID,
				Line:   i + 1,
				Col:    col,
			})
		}
	}
	return out
}

// ReplaceFile swaps a file's lines and shingles in one critical section.
func (l *Literal) ReplaceFile(fileID int64, path string, lines []string, shingles map[string][]store.Posting) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.removeLocked(fileID)
	l.paths[fileID] = path
	owned := make([]string, len(lines))
	copy(owned, lines)
	l.lines[fileID] = owned
	for gram, postings := range shingles {
		m, ok := l.grams[gram]
		if !ok {
			m = make(map[int64][]store.Posting)
			l.grams[gram] = m
		}
		m[fileID] = postings
	}
}

func (l *Literal) RemoveFile(fileID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(fileID)
}

func (l *Literal) removeLocked(fileID int64) {
	if _, ok := l.paths[fileID]; !ok {
		return
	}
	delete(l.paths, fileID)
	delete(l.lines, fileID)
	for gram, m := range l.grams {
		delete(m, fileID)
		if len(m) == 0 {
			delete(l.grams, gram)
		}
	}
}

// Search returns every exact occurrence of q, ordered by path then position.
// Queries shorter than MinLiteralQuery are rejected.
func (l *Literal) Search(q string, limit int) ([]LiteralHit, error) {
	if len(q) < MinLiteralQuery {
		return nil, fmt.Errorf("literal query must be at least %d characters, got %d", MinLiteralQuery, len(q))
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	first := q[:MinLiteralQuery]
	byFile, ok := l.grams[first]
	if !ok {
		return nil, nil
	}

	var hits []LiteralHit
	for fileID, postings := range byFile {
		lines := l.lines[fileID]
		for _, p := range postings {
			if p.Line-1 >= len(lines) {
				continue
			}
			line := lines[p.Line-1]
			if p.Col+len(q) > len(line) || line[p.Col:p.Col+len(q)] != q {
				continue
			}
			hits = append(hits, LiteralHit{
				FileID:   fileID,
				Path:     l.paths[fileID],
				Line:     p.Line,
				Col:      p.Col,
				LineText: line,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		if hits[i].Line != hits[j].Line {
			return hits[i].Line < hits[j].Line
		}
		return hits[i].Col < hits[j].Col
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SplitLines is the line-splitting convention the literal index expects.
func SplitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}
