package index

import (
	"testing"

	"github.com/samueljklee/codescout/internal/store"
)

func sym(id int64, path, name, kind string, line int) store.Symbol {
	return store.Symbol{
		SymbolID:  path + ":" + name,
		FileID:    id,
		FilePath:  path,
		Name:      name,
		Kind:      kind,
		StartLine: line,
		EndLine:   line + 5,
	}
}

func TestStructuralLookupExact(t *testing.T) {
	s := NewStructural()
	s.ReplaceFile(1, []store.Symbol{
		sym(1, "a.go", "Handler", "type", 10),
		sym(1, "a.go", "NewHandler", "function", 20),
	})
	s.ReplaceFile(2, []store.Symbol{
		sym(2, "b.go", "Handler", "type", 5),
	})

	got := s.Lookup("Handler")
	if len(got) != 2 {
		t.Fatalf("Lookup(Handler) = %d symbols, want 2", len(got))
	}
	// Deterministic order: path, then line.
	if got[0].FilePath != "a.go" || got[1].FilePath != "b.go" {
		t.Errorf("order = %s, %s; want a.go, b.go", got[0].FilePath, got[1].FilePath)
	}
}

func TestStructuralLookupWildcard(t *testing.T) {
	s := NewStructural()
	s.ReplaceFile(1, []store.Symbol{
		sym(1, "a.go", "NewServer", "function", 1),
		sym(1, "a.go", "NewClient", "function", 10),
		sym(1, "a.go", "Shutdown", "function", 20),
	})

	got := s.Lookup("New*")
	if len(got) != 2 {
		t.Fatalf("Lookup(New*) = %d symbols, want 2", len(got))
	}
	for _, m := range got {
		if m.Name != "NewServer" && m.Name != "NewClient" {
			t.Errorf("unexpected match %q", m.Name)
		}
	}
}

func TestStructuralLookupMethodName(t *testing.T) {
	s := NewStructural()
	s.ReplaceFile(1, []store.Symbol{
		sym(1, "a.go", "(Server).Close", "method", 30),
	})

	if got := s.Lookup("Close"); len(got) != 1 {
		t.Errorf("Lookup(Close) = %d symbols, want the receiver-qualified method", len(got))
	}
}

func TestStructuralReplaceIsAtomic(t *testing.T) {
	s := NewStructural()
	s.ReplaceFile(1, []store.Symbol{
		sym(1, "a.go", "Old", "function", 1),
	})
	s.ReplaceFile(1, []store.Symbol{
		sym(1, "a.go", "New", "function", 1),
	})

	if got := s.Lookup("Old"); len(got) != 0 {
		t.Errorf("stale symbol survived replace: %v", got)
	}
	if got := s.Lookup("New"); len(got) != 1 {
		t.Errorf("replacement symbol missing")
	}
}

func TestStructuralRemoveFile(t *testing.T) {
	s := NewStructural()
	s.ReplaceFile(1, []store.Symbol{sym(1, "a.go", "Gone", "function", 1)})
	s.RemoveFile(1)

	if s.Count() != 0 {
		t.Errorf("Count = %d after removal, want 0", s.Count())
	}
	if got := s.Lookup("Gone"); len(got) != 0 {
		t.Errorf("removed symbol still resolvable")
	}
}
