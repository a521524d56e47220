// Package index holds the in-memory search indexes: structural symbol
// lookup, literal trigram matching, the relationship graph, and semantic
// vectors. Each index updates per file under its own lock, so a reader
// always sees a file's entries fully replaced or not at all.
package index

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/samueljklee/codescout/internal/store"
)

// Structural answers symbol lookups by exact name or glob pattern.
type Structural struct {
	mu     sync.RWMutex
	byFile map[int64][]store.Symbol
	byName map[string][]string // name -> symbol IDs
	byID   map[string]store.Symbol
}

func NewStructural() *Structural {
	return &Structural{
		byFile: make(map[int64][]store.Symbol),
		byName: make(map[string][]string),
		byID:   make(map[string]store.Symbol),
	}
}

// ReplaceFile swaps every symbol a file contributes in one critical section.
func (s *Structural) ReplaceFile(fileID int64, symbols []store.Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(fileID)
	if len(symbols) == 0 {
		return
	}
	owned := make([]store.Symbol, len(symbols))
	copy(owned, symbols)
	s.byFile[fileID] = owned
	for _, sym := range owned {
		s.byName[sym.Name] = append(s.byName[sym.Name], sym.SymbolID)
		s.byID[sym.SymbolID] = sym
	}
}

func (s *Structural) RemoveFile(fileID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(fileID)
}

func (s *Structural) removeLocked(fileID int64) {
	old, ok := s.byFile[fileID]
	if !ok {
		return
	}
	for _, sym := range old {
		delete(s.byID, sym.SymbolID)
		ids := s.byName[sym.Name]
		for i, id := range ids {
			if id == sym.SymbolID {
				s.byName[sym.Name] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(s.byName[sym.Name]) == 0 {
			delete(s.byName, sym.Name)
		}
	}
	delete(s.byFile, fileID)
}

// ByID returns a symbol by its identifier.
func (s *Structural) ByID(id string) (store.Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.byID[id]
	return sym, ok
}

// ByName returns every symbol with an exact name, ordered by path then line.
func (s *Structural) ByName(name string) []store.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Symbol, 0, len(s.byName[name]))
	for _, id := range s.byName[name] {
		out = append(out, s.byID[id])
	}
	sortSymbols(out)
	return out
}

// Lookup finds symbols by name. Patterns containing glob metacharacters
// match against the symbol name; plain names also match the method part of
// qualified names like "(Recv).Name". Results are ordered by path then line
// so identical queries return identical lists.
func (s *Structural) Lookup(pattern string) []store.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Symbol
	if !strings.ContainsAny(pattern, "*?[") {
		for _, id := range s.byName[pattern] {
			out = append(out, s.byID[id])
		}
		// Method names match without their receiver qualifier.
		for name, ids := range s.byName {
			if name == pattern {
				continue
			}
			if i := strings.LastIndex(name, ")."); i >= 0 && name[i+2:] == pattern {
				for _, id := range ids {
					out = append(out, s.byID[id])
				}
			}
		}
	} else {
		for name, ids := range s.byName {
			if ok, _ := path.Match(pattern, name); !ok {
				continue
			}
			for _, id := range ids {
				out = append(out, s.byID[id])
			}
		}
	}
	sortSymbols(out)
	return out
}

// All returns every indexed symbol in deterministic order.
func (s *Structural) All() []store.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Symbol, 0, len(s.byID))
	for _, sym := range s.byID {
		out = append(out, sym)
	}
	sortSymbols(out)
	return out
}

func (s *Structural) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func sortSymbols(symbols []store.Symbol) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].FilePath != symbols[j].FilePath {
			return symbols[i].FilePath < symbols[j].FilePath
		}
		if symbols[i].StartLine != symbols[j].StartLine {
			return symbols[i].StartLine < symbols[j].StartLine
		}
		return symbols[i].Name < symbols[j].Name
	})
}
