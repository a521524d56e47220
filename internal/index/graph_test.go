package index

import (
	"testing"

	"github.com/samueljklee/codescout/internal/store"
)

func edge(fileID int64, path, sourceID, target string, typ store.EdgeType, line int) store.Edge {
	return store.Edge{
		FileID:     fileID,
		FilePath:   path,
		SourceID:   sourceID,
		TargetName: target,
		Type:       typ,
		Line:       line,
	}
}

// A file defining foo, then a later file calling it: the dependents query
// must surface the caller even though it was indexed second.
func TestDependentsAcrossIndexingOrder(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "a.py:foo", FileID: 1, FilePath: "a.py", Name: "foo", Kind: "function", StartLine: 1, EndLine: 1},
	})
	if tr := g.Dependents("foo", 3); len(tr.Neighbors) != 0 {
		t.Fatalf("dependents before any caller exists = %d, want 0", len(tr.Neighbors))
	}

	symbols.ReplaceFile(2, []store.Symbol{
		{SymbolID: "b.py:b", FileID: 2, FilePath: "b.py", Name: "b", Kind: "module", StartLine: 1, EndLine: 3},
	})
	g.ReplaceFile(2, []store.Edge{
		edge(2, "b.py", "b.py:b", "foo", store.EdgeCall, 3),
	})

	tr := g.Dependents("foo", 3)
	if len(tr.Neighbors) != 1 {
		t.Fatalf("dependents = %d, want 1", len(tr.Neighbors))
	}
	n := tr.Neighbors[0]
	if n.Symbol.FilePath != "b.py" {
		t.Errorf("dependent path = %q, want b.py", n.Symbol.FilePath)
	}
	if n.Via != store.EdgeCall || n.Depth != 1 {
		t.Errorf("dependent via=%q depth=%d, want call at depth 1", n.Via, n.Depth)
	}
}

func TestDependenciesTransitive(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "a:a", FileID: 1, FilePath: "a.go", Name: "a", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "b:b", FileID: 1, FilePath: "b.go", Name: "b", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "c:c", FileID: 1, FilePath: "c.go", Name: "c", Kind: "function", StartLine: 1, EndLine: 2},
	})
	g.ReplaceFile(1, []store.Edge{
		edge(1, "a.go", "a:a", "b", store.EdgeCall, 2),
		edge(1, "b.go", "b:b", "c", store.EdgeCall, 2),
	})

	tr := g.Dependencies("a", 1)
	if len(tr.Neighbors) != 1 {
		t.Fatalf("depth-1 dependencies = %d, want 1", len(tr.Neighbors))
	}
	if !tr.Truncated {
		t.Error("expected truncation flag when deeper nodes remain")
	}

	tr = g.Dependencies("a", 5)
	if len(tr.Neighbors) != 2 {
		t.Fatalf("deep dependencies = %d, want 2", len(tr.Neighbors))
	}
	if tr.Truncated {
		t.Error("unexpected truncation on a fully walked graph")
	}
	if tr.Neighbors[1].Depth != 2 {
		t.Errorf("c depth = %d, want 2", tr.Neighbors[1].Depth)
	}
}

func TestFindCyclesImportIsError(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "a.py:a", FileID: 1, FilePath: "a.py", Name: "a", Kind: "module", StartLine: 1, EndLine: 1},
	})
	symbols.ReplaceFile(2, []store.Symbol{
		{SymbolID: "b.py:b", FileID: 2, FilePath: "b.py", Name: "b", Kind: "module", StartLine: 1, EndLine: 1},
	})
	symbols.ReplaceFile(3, []store.Symbol{
		{SymbolID: "c.py:c", FileID: 3, FilePath: "c.py", Name: "c", Kind: "module", StartLine: 1, EndLine: 1},
	})
	g.ReplaceFile(1, []store.Edge{edge(1, "a.py", "a.py:a", "b", store.EdgeImport, 1)})
	g.ReplaceFile(2, []store.Edge{edge(2, "b.py", "b.py:b", "c", store.EdgeImport, 1)})
	g.ReplaceFile(3, []store.Edge{edge(3, "c.py", "c.py:c", "a", store.EdgeImport, 1)})

	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if len(cycles[0].Members) != 3 {
		t.Errorf("cycle members = %d, want 3", len(cycles[0].Members))
	}
	if cycles[0].Severity != SeverityError {
		t.Errorf("severity = %q, want error for an import cycle", cycles[0].Severity)
	}
}

func TestFindCyclesCallOnlyIsWarning(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "x:x", FileID: 1, FilePath: "x.go", Name: "x", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "y:y", FileID: 1, FilePath: "y.go", Name: "y", Kind: "function", StartLine: 1, EndLine: 2},
	})
	g.ReplaceFile(1, []store.Edge{
		edge(1, "x.go", "x:x", "y", store.EdgeCall, 2),
		edge(1, "y.go", "y:y", "x", store.EdgeCall, 2),
	})

	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if cycles[0].Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning for a call-only cycle", cycles[0].Severity)
	}
}

// A module importing itself is a one-member cycle, and recursion must
// not make a symbol its own dependent.
func TestFindCyclesSelfReference(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "r.py:r", FileID: 1, FilePath: "r.py", Name: "r", Kind: "module", StartLine: 1, EndLine: 1},
	})
	g.ReplaceFile(1, []store.Edge{edge(1, "r.py", "r.py:r", "r", store.EdgeImport, 1)})

	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1 for a self-import", len(cycles))
	}
	if len(cycles[0].Members) != 1 || cycles[0].Members[0].SymbolID != "r.py:r" {
		t.Fatalf("cycle members = %+v, want just r.py:r", cycles[0].Members)
	}
	if cycles[0].Severity != SeverityError {
		t.Errorf("severity = %q, want error for a self-import", cycles[0].Severity)
	}

	if tr := g.Dependents("r", 3); len(tr.Neighbors) != 0 {
		t.Errorf("self-loop listed the symbol as its own dependent: %+v", tr.Neighbors)
	}
	if c := g.Centrality(); len(c) != 0 {
		t.Errorf("self-loop contributed centrality: %v", c)
	}
}

func TestFindCyclesAcyclicGraph(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "a:a", FileID: 1, FilePath: "a.go", Name: "a", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "b:b", FileID: 1, FilePath: "b.go", Name: "b", Kind: "function", StartLine: 1, EndLine: 2},
	})
	g.ReplaceFile(1, []store.Edge{
		edge(1, "a.go", "a:a", "b", store.EdgeCall, 2),
	})

	if cycles := g.FindCycles(); len(cycles) != 0 {
		t.Errorf("acyclic graph reported %d cycles", len(cycles))
	}
}

func TestCyclesDissolveOnFileRemoval(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "a.py:a", FileID: 1, FilePath: "a.py", Name: "a", Kind: "module", StartLine: 1, EndLine: 1},
	})
	symbols.ReplaceFile(2, []store.Symbol{
		{SymbolID: "b.py:b", FileID: 2, FilePath: "b.py", Name: "b", Kind: "module", StartLine: 1, EndLine: 1},
	})
	g.ReplaceFile(1, []store.Edge{edge(1, "a.py", "a.py:a", "b", store.EdgeImport, 1)})
	g.ReplaceFile(2, []store.Edge{edge(2, "b.py", "b.py:b", "a", store.EdgeImport, 1)})

	if cycles := g.FindCycles(); len(cycles) != 1 {
		t.Fatalf("expected the two-module cycle before removal")
	}

	g.RemoveFile(2)
	symbols.RemoveFile(2)
	if cycles := g.FindCycles(); len(cycles) != 0 {
		t.Errorf("cycle survived removal of one participant")
	}
}

func TestCentrality(t *testing.T) {
	symbols := NewStructural()
	g := NewGraph(symbols)

	symbols.ReplaceFile(1, []store.Symbol{
		{SymbolID: "util:log", FileID: 1, FilePath: "util.go", Name: "log", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "a:a", FileID: 1, FilePath: "a.go", Name: "a", Kind: "function", StartLine: 1, EndLine: 2},
		{SymbolID: "b:b", FileID: 1, FilePath: "b.go", Name: "b", Kind: "function", StartLine: 1, EndLine: 2},
	})
	g.ReplaceFile(1, []store.Edge{
		edge(1, "a.go", "a:a", "log", store.EdgeCall, 1),
		edge(1, "b.go", "b:b", "log", store.EdgeCall, 1),
		edge(1, "a.go", "a:a", "b", store.EdgeCall, 2),
	})

	c := g.Centrality()
	if c["util:log"] != 1.0 {
		t.Errorf("hub centrality = %f, want 1.0", c["util:log"])
	}
	if c["b:b"] != 0.5 {
		t.Errorf("b centrality = %f, want 0.5", c["b:b"])
	}
	if _, ok := c["a:a"]; ok {
		t.Errorf("symbol with no inbound edges should be absent")
	}
}
