package index

import (
	"github.com/samueljklee/codescout/internal/store"
)

// Set bundles the four indexes that answer searches. File updates go
// through the Set so every index sees the same replacement.
type Set struct {
	Structural *Structural
	Literal    *Literal
	Graph      *Graph
	Semantic   *Semantic
}

func NewSet() *Set {
	structural := NewStructural()
	return &Set{
		Structural: structural,
		Literal:    NewLiteral(),
		Graph:      NewGraph(structural),
		Semantic:   NewSemantic(),
	}
}

// ReplaceFile applies a file's complete entry set to every index. Each
// index swaps under its own lock, so a reader sees the file's old entries
// or its new ones, never a half-applied mix.
func (s *Set) ReplaceFile(fileID int64, path string, entries *store.FileEntries) {
	s.Structural.ReplaceFile(fileID, entries.Symbols)
	s.Graph.ReplaceFile(fileID, entries.Edges)
	s.Literal.ReplaceFile(fileID, path, entries.Lines, entries.Shingles)
	s.Semantic.ReplaceFile(fileID, entries.Chunks, entries.Embeddings)
}

// RemoveFile drops a file from every index.
func (s *Set) RemoveFile(fileID int64) {
	s.Graph.RemoveFile(fileID)
	s.Structural.RemoveFile(fileID)
	s.Literal.RemoveFile(fileID)
	s.Semantic.RemoveFile(fileID)
}
