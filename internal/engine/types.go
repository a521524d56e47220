// Package engine answers search queries by fanning out over the code
// indexes and external connectors, then ranking the merged results.
package engine

import (
	"time"
)

// Intent is the classified purpose of a query. Classification is
// deterministic: the same query always maps to the same intent.
type Intent string

const (
	IntentDiscovery         Intent = "discovery"
	IntentSymbolLookup      Intent = "symbol-lookup"
	IntentImpactAnalysis    Intent = "impact-analysis"
	IntentHistoricalContext Intent = "historical-context"
	IntentDebug             Intent = "debug"
)

// Source identifies which index or connector produced a result.
type Source string

const (
	SourceStructural Source = "structural"
	SourceLiteral    Source = "literal"
	SourceGraph      Source = "graph"
	SourceSemantic   Source = "semantic"
	SourceExternal   Source = "external"
)

// sourcePriority breaks score ties: more precise sources win.
var sourcePriority = map[Source]int{
	SourceStructural: 0,
	SourceLiteral:    1,
	SourceGraph:      2,
	SourceSemantic:   3,
	SourceExternal:   4,
}

// SearchType narrows which index families a query consults. The zero
// value and "hybrid" leave the intent-selected strategy untouched.
type SearchType string

const (
	SearchHybrid     SearchType = "hybrid"
	SearchSemantic   SearchType = "semantic"
	SearchStructural SearchType = "structural"
	SearchLiteral    SearchType = "literal"
)

// Request is one search query.
type Request struct {
	Query string `json:"query"`
	// Intent overrides classification when set.
	Intent Intent `json:"intent,omitempty"`
	// SearchType restricts the consulted indexes; it never widens them.
	SearchType SearchType `json:"search_type,omitempty"`
	// Scope restricts results to paths matching a glob.
	Scope string `json:"scope,omitempty"`
	// Channels scopes external connectors to the named chat channels or
	// tracker projects.
	Channels []string `json:"channels,omitempty"`
	// Limit caps ranked results; 0 uses the configured maximum.
	Limit int `json:"limit,omitempty"`
	// MaxDepth bounds graph traversal for impact queries.
	MaxDepth int `json:"max_depth,omitempty"`
}

// Result is one ranked search result.
type Result struct {
	Source    Source  `json:"source"`
	Path      string  `json:"path,omitempty"`
	Line      int     `json:"line,omitempty"`
	EndLine   int     `json:"end_line,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Snippet   string  `json:"snippet,omitempty"`
	URL       string  `json:"url,omitempty"`
	Connector string  `json:"connector,omitempty"`
	Depth     int     `json:"depth,omitempty"`
	Score     float64 `json:"score"`
	// CrossRefs lists the other sources that matched this same location
	// before deduplication merged them.
	CrossRefs []string `json:"cross_refs,omitempty"`
	// rawScore is the source-native score before normalization.
	rawScore float64
	// symbolID keys centrality lookup for symbol-backed results.
	symbolID string
	// updatedAt feeds the recency term; zero means unknown.
	updatedAt int64
}

// Diagnostics explains how a response was produced, including what is
// missing from it.
type Diagnostics struct {
	QueryID   string            `json:"query_id"`
	Intent    Intent            `json:"intent"`
	Sources   []Source          `json:"sources"`
	Failed    map[string]string `json:"failed,omitempty"`
	TimedOut  []string          `json:"timed_out,omitempty"`
	Partial   bool              `json:"partial"`
	CacheHit  bool              `json:"cache_hit"`
	Truncated bool              `json:"truncated,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Response is a complete answer to one Request.
type Response struct {
	Results []Result `json:"results"`
	// QueryInterpretation says how the analyzer read the query: the
	// classified intent, the consulted sources, and the extracted terms.
	QueryInterpretation string      `json:"query_interpretation"`
	Diagnostics         Diagnostics `json:"diagnostics"`
}
