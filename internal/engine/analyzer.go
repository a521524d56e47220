package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samueljklee/codescout/internal/connector"
)

// Plan is the executable form of a query: its intent, the sources to
// consult, and the per-index sub-queries. Building a plan touches no
// index; the same request always produces the same plan.
type Plan struct {
	Intent  Intent
	Sources []Source

	// Query is the raw text; semantic search embeds it whole.
	Query string

	// SymbolQuery feeds structural lookup and graph traversal.
	SymbolQuery string
	// LiteralQuery feeds the exact-match index.
	LiteralQuery string
	// Kinds limits which external connectors run.
	Kinds []connector.Kind

	// Channels scopes external connectors to named channels or projects.
	Channels []string

	MaxDepth int
}

// Interpretation renders the plan for the response: how the analyzer
// read the query and where the answer comes from.
func (p Plan) Interpretation() string {
	names := make([]string, len(p.Sources))
	for i, src := range p.Sources {
		names[i] = string(src)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s query over %s", p.Intent, strings.Join(names, ", "))
	if p.SymbolQuery != "" {
		fmt.Fprintf(&b, "; symbol %q", p.SymbolQuery)
	}
	if p.LiteralQuery != "" && p.LiteralQuery != p.SymbolQuery {
		fmt.Fprintf(&b, "; literal %q", p.LiteralQuery)
	}
	return b.String()
}

// Analyzer classifies queries. Intent dictates the strategy; there is no
// scoring or fallback chain, so a query plans identically every time.
type Analyzer struct {
	maxDepth int
}

func NewAnalyzer(maxDepth int) *Analyzer {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &Analyzer{maxDepth: maxDepth}
}

var (
	quotedPattern     = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	wildcardPattern   = regexp.MustCompile(`^[\w*?\[\].()]+$`)

	debugKeywords = []string{
		"panic", "stack trace", "traceback", "exception", "crash",
		"segfault", "nil pointer", "error message", "fails with", "bug",
	}
	impactKeywords = []string{
		"who calls", "callers of", "impact", "affected", "dependents",
		"depends on", "references to", "what uses", "break", "downstream",
	}
	historyKeywords = []string{
		"why", "history", "when was", "discussed", "decided", "decision",
		"originally", "introduced", "review", "ticket", "rationale",
	}
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "where": true, "how": true, "what": true,
	"does": true, "code": true, "file": true, "files": true, "find": true,
	"show": true, "all": true, "are": true, "was": true, "who": true,
	"calls": true, "def": true, "func": true, "function": true,
	"class": true, "method": true, "type": true,
}

// Analyze builds the plan for a request. An explicit intent on the
// request overrides classification but never the strategy table.
func (a *Analyzer) Analyze(req Request) Plan {
	query := strings.TrimSpace(req.Query)
	lower := strings.ToLower(query)

	intent := req.Intent
	if intent == "" {
		intent = classify(query, lower)
	}

	plan := Plan{
		Intent:       intent,
		Query:        query,
		SymbolQuery:  extractSymbol(query),
		LiteralQuery: extractLiteral(query),
		Channels:     req.Channels,
		MaxDepth:     req.MaxDepth,
	}
	if plan.MaxDepth <= 0 {
		plan.MaxDepth = a.maxDepth
	}

	switch intent {
	case IntentSymbolLookup:
		plan.Sources = []Source{SourceStructural, SourceLiteral}
	case IntentImpactAnalysis:
		plan.Sources = []Source{SourceGraph, SourceStructural}
	case IntentHistoricalContext:
		plan.Sources = []Source{SourceExternal, SourceSemantic}
		plan.Kinds = []connector.Kind{connector.KindTickets, connector.KindChat, connector.KindReviews}
	case IntentDebug:
		plan.Sources = []Source{SourceLiteral, SourceGraph, SourceExternal}
		plan.Kinds = []connector.Kind{connector.KindTickets}
	default:
		plan.Sources = []Source{SourceSemantic, SourceLiteral, SourceStructural}
	}

	plan.Sources = narrowSources(plan.Sources, req.SearchType)
	return plan
}

// narrowSources applies the caller's search_type restriction to the
// intent-selected strategy. Narrowing never widens: a type absent from
// the strategy is still consulted alone rather than silently ignored.
func narrowSources(sources []Source, st SearchType) []Source {
	if st == "" || st == SearchHybrid {
		return sources
	}
	var kept []Source
	for _, src := range sources {
		if st.allows(src) {
			kept = append(kept, src)
		}
	}
	if len(kept) == 0 {
		switch st {
		case SearchSemantic:
			kept = []Source{SourceSemantic}
		case SearchStructural:
			kept = []Source{SourceStructural}
		case SearchLiteral:
			kept = []Source{SourceLiteral}
		}
	}
	return kept
}

func (t SearchType) allows(src Source) bool {
	switch t {
	case SearchSemantic:
		return src == SourceSemantic
	case SearchStructural:
		// The graph is a structural view; it narrows with it.
		return src == SourceStructural || src == SourceGraph
	case SearchLiteral:
		return src == SourceLiteral
	}
	return true
}

// classify maps a query to an intent using ordered keyword rules. Order
// matters: debug beats impact beats history, and a bare identifier is a
// symbol lookup only when nothing else claimed the query.
func classify(query, lower string) Intent {
	for _, kw := range debugKeywords {
		if strings.Contains(lower, kw) {
			return IntentDebug
		}
	}
	for _, kw := range impactKeywords {
		if strings.Contains(lower, kw) {
			return IntentImpactAnalysis
		}
	}
	for _, kw := range historyKeywords {
		if strings.Contains(lower, kw) {
			return IntentHistoricalContext
		}
	}
	if looksLikeSymbol(query) {
		return IntentSymbolLookup
	}
	return IntentDiscovery
}

// looksLikeSymbol reports whether the whole query is one identifier-ish
// token: CamelCase, snake_case, dotted, or a glob over identifiers.
func looksLikeSymbol(query string) bool {
	if strings.ContainsAny(query, " \t") {
		fields := strings.Fields(query)
		// "def foo" / "func Serve" style prefixed lookups.
		if len(fields) == 2 {
			switch strings.ToLower(fields[0]) {
			case "def", "func", "function", "class", "method", "type":
				return wildcardPattern.MatchString(fields[1])
			}
		}
		return false
	}
	return wildcardPattern.MatchString(query)
}

// extractSymbol picks the identifier the structural and graph indexes
// should look up: the most identifier-shaped token in the query.
func extractSymbol(query string) string {
	best := ""
	for _, tok := range identifierPattern.FindAllString(query, -1) {
		if stopwords[strings.ToLower(tok)] || len(tok) < 3 {
			continue
		}
		// Mixed case or underscores beat plain words; longer beats shorter.
		if symbolWeight(tok) > symbolWeight(best) {
			best = tok
		}
	}
	// Globs pass through untouched.
	if strings.ContainsAny(query, "*?[") && !strings.ContainsAny(query, " \t") {
		return query
	}
	return best
}

func symbolWeight(tok string) int {
	if tok == "" {
		return 0
	}
	w := len(tok)
	if strings.ContainsRune(tok, '_') {
		w += 20
	}
	if tok != strings.ToLower(tok) && tok != strings.ToUpper(tok) {
		w += 20
	}
	return w
}

// extractLiteral picks the exact string to match: quoted text wins,
// otherwise the symbol token.
func extractLiteral(query string) string {
	if m := quotedPattern.FindStringSubmatch(query); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return extractSymbol(query)
}
