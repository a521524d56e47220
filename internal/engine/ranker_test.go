package engine

import (
	"testing"
	"time"
)

func fixedRanker(t *testing.T) *Ranker {
	t.Helper()
	r := NewRanker()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r
}

func TestRankNormalizesPerSource(t *testing.T) {
	r := fixedRanker(t)
	results := []Result{
		{Source: SourceSemantic, Path: "a.go", Line: 1, rawScore: 0.2},
		{Source: SourceSemantic, Path: "b.go", Line: 1, rawScore: 0.9},
		{Source: SourceStructural, Path: "c.go", Line: 1, rawScore: 1.0},
	}

	ranked := r.Rank(results, IntentDiscovery, nil, 0)
	if len(ranked) != 3 {
		t.Fatalf("got %d results, want 3", len(ranked))
	}
	// b.go is the best semantic hit and carries the discovery bonus, so
	// it outranks the lone structural hit.
	if ranked[0].Path != "b.go" {
		t.Fatalf("top result = %s, want b.go", ranked[0].Path)
	}
	for _, res := range ranked {
		if res.Path == "a.go" && res.Score >= ranked[0].Score {
			t.Fatalf("weak semantic hit ranked above strong one")
		}
	}
}

func TestRankTieBreakIsStable(t *testing.T) {
	r := fixedRanker(t)
	build := func() []Result {
		return []Result{
			{Source: SourceLiteral, Path: "z.go", Line: 5, rawScore: 1.0},
			{Source: SourceLiteral, Path: "a.go", Line: 9, rawScore: 1.0},
			{Source: SourceLiteral, Path: "a.go", Line: 2, rawScore: 1.0},
		}
	}

	first := r.Rank(build(), IntentDebug, nil, 0)
	for i := 0; i < 5; i++ {
		again := r.Rank(build(), IntentDebug, nil, 0)
		for j := range first {
			if first[j].Path != again[j].Path || first[j].Line != again[j].Line {
				t.Fatalf("ordering changed between runs")
			}
		}
	}
	if first[0].Path != "a.go" || first[0].Line != 2 {
		t.Fatalf("tie-break order = %s:%d, want a.go:2 first", first[0].Path, first[0].Line)
	}
}

func TestRankDedupsOverlappingSpans(t *testing.T) {
	r := fixedRanker(t)
	results := []Result{
		{Source: SourceStructural, Path: "a.go", Line: 10, EndLine: 30, Symbol: "Walk", rawScore: 1.0},
		{Source: SourceSemantic, Path: "a.go", Line: 12, EndLine: 25, rawScore: 0.4},
		{Source: SourceLiteral, Path: "a.go", Line: 80, rawScore: 1.0},
	}

	ranked := r.Rank(results, IntentSymbolLookup, nil, 0)
	if len(ranked) != 2 {
		t.Fatalf("got %d results after dedup, want 2", len(ranked))
	}
	for _, res := range ranked {
		if res.Path == "a.go" && res.Line <= 30 && res.Symbol != "Walk" {
			t.Fatalf("dedup kept the lower-scored duplicate: %+v", res)
		}
	}
}

func TestRankMergesCrossReferences(t *testing.T) {
	r := fixedRanker(t)
	results := []Result{
		{Source: SourceStructural, Path: "a.go", Line: 10, EndLine: 30, Symbol: "Walk", rawScore: 1.0},
		{Source: SourceSemantic, Path: "a.go", Line: 12, EndLine: 25, rawScore: 0.4},
	}

	ranked := r.Rank(results, IntentSymbolLookup, nil, 0)
	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1", len(ranked))
	}
	if len(ranked[0].CrossRefs) != 1 || ranked[0].CrossRefs[0] != string(SourceSemantic) {
		t.Fatalf("cross refs = %v, want the merged semantic source", ranked[0].CrossRefs)
	}
}

func TestRankDedupsExternalByURL(t *testing.T) {
	r := fixedRanker(t)
	results := []Result{
		{Source: SourceExternal, Connector: "github-issues", URL: "https://example.com/42", rawScore: 0.9},
		{Source: SourceExternal, Connector: "github-issues", URL: "https://example.com/42", rawScore: 0.3},
	}
	if got := len(r.Rank(results, IntentHistoricalContext, nil, 0)); got != 1 {
		t.Fatalf("got %d external results, want 1", got)
	}
}

func TestRankCentralityBoost(t *testing.T) {
	r := fixedRanker(t)
	central := map[string]float64{"a.go:Hub:1": 1.0}
	results := []Result{
		{Source: SourceStructural, Path: "a.go", Line: 1, Symbol: "Hub", rawScore: 1.0, symbolID: "a.go:Hub:1"},
		{Source: SourceStructural, Path: "b.go", Line: 1, Symbol: "Leaf", rawScore: 1.0, symbolID: "b.go:Leaf:1"},
	}
	ranked := r.Rank(results, IntentDiscovery, central, 0)
	if ranked[0].Symbol != "Hub" {
		t.Fatalf("top result = %s, want the central symbol", ranked[0].Symbol)
	}
}

func TestRankRecency(t *testing.T) {
	r := fixedRanker(t)
	now := r.now()
	results := []Result{
		{Source: SourceLiteral, Path: "old.go", Line: 1, rawScore: 1.0, updatedAt: now.Add(-365 * 24 * time.Hour).Unix()},
		{Source: SourceLiteral, Path: "new.go", Line: 1, rawScore: 1.0, updatedAt: now.Add(-time.Hour).Unix()},
	}
	ranked := r.Rank(results, IntentDebug, nil, 0)
	if ranked[0].Path != "new.go" {
		t.Fatalf("top result = %s, want the recently modified file", ranked[0].Path)
	}
}

func TestRankLimit(t *testing.T) {
	r := fixedRanker(t)
	var results []Result
	for i := 0; i < 20; i++ {
		results = append(results, Result{Source: SourceLiteral, Path: "a.go", Line: i*10 + 1, rawScore: 1.0})
	}
	if got := len(r.Rank(results, IntentDebug, nil, 5)); got != 5 {
		t.Fatalf("got %d results, want limit of 5", got)
	}
}
