package engine

import (
	"context"
	"log"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/samueljklee/codescout/internal/connector"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/index"
)

// Executor fans a plan out over the indexes and connectors. Each source
// runs in its own goroutine against a shared deadline; sources that
// answer in time contribute, sources that do not are abandoned and
// reported, and the query still returns whatever arrived.
type Executor struct {
	indexes    *index.Set
	embedder   embed.Embedder
	connectors []connector.Connector
	timeout    time.Duration
	perSource  int
}

func NewExecutor(indexes *index.Set, embedder embed.Embedder, connectors []connector.Connector, timeout time.Duration, perSource int) *Executor {
	if perSource <= 0 {
		perSource = 50
	}
	return &Executor{
		indexes:    indexes,
		embedder:   embedder,
		connectors: connectors,
		timeout:    timeout,
		perSource:  perSource,
	}
}

// sourceOutcome is one unit of fan-out work reporting back. The key is
// the source name, or "external:<connector>" for connector units, so
// diagnostics name exactly which piece failed or timed out.
type sourceOutcome struct {
	key       string
	results   []Result
	truncated bool
	err       error
}

// Execute runs every source in the plan concurrently and joins on the
// deadline. The external source fans out further: each connector is
// its own unit of work, so one slow tracker never starves the others.
// Diagnostics carry per-unit failures and the names of units still
// pending when time ran out; their goroutines are abandoned and their
// late answers dropped.
func (x *Executor) Execute(ctx context.Context, plan Plan, queryID string) ([]Result, Diagnostics) {
	diag := Diagnostics{
		QueryID: queryID,
		Intent:  plan.Intent,
		Sources: plan.Sources,
		Failed:  make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	conns := x.selectConnectors(plan)
	outcomes := make(chan sourceOutcome, len(plan.Sources)+len(conns))
	pending := make(map[string]bool, len(plan.Sources)+len(conns))

	for _, src := range plan.Sources {
		if src == SourceExternal {
			for _, conn := range conns {
				key := "external:" + conn.Name()
				pending[key] = true
				go func(key string, conn connector.Connector) {
					results, err := x.searchConnector(ctx, conn, plan)
					outcomes <- sourceOutcome{key: key, results: results, err: err}
				}(key, conn)
			}
			continue
		}
		pending[string(src)] = true
		go func(src Source) {
			out := x.search(ctx, src, plan)
			out.key = string(src)
			outcomes <- out
		}(src)
	}

	var results []Result
	for len(pending) > 0 {
		select {
		case out := <-outcomes:
			delete(pending, out.key)
			results = append(results, x.collect(out, &diag, queryID)...)
		case <-ctx.Done():
			// Answers queued before the deadline still count.
			for len(pending) > 0 {
				select {
				case out := <-outcomes:
					delete(pending, out.key)
					results = append(results, x.collect(out, &diag, queryID)...)
					continue
				default:
				}
				break
			}
			for key := range pending {
				diag.TimedOut = append(diag.TimedOut, key)
				sourceFailures.WithLabelValues(key).Inc()
			}
			sort.Strings(diag.TimedOut)
			if len(diag.TimedOut) > 0 {
				terr := &QueryTimeoutError{QueryID: queryID, Deadline: x.timeout, Pending: diag.TimedOut}
				log.Printf("⚠️ %v; returning partial results", terr)
			}
			pending = nil
		}
	}

	diag.Partial = len(diag.Failed) > 0 || len(diag.TimedOut) > 0
	return results, diag
}

func (x *Executor) collect(out sourceOutcome, diag *Diagnostics, queryID string) []Result {
	if out.err != nil {
		log.Printf("⚠️ Source %s failed for query %s: %v", out.key, queryID, out.err)
		diag.Failed[out.key] = out.err.Error()
		sourceFailures.WithLabelValues(out.key).Inc()
		return nil
	}
	if out.truncated {
		diag.Truncated = true
	}
	return out.results
}

func (x *Executor) search(ctx context.Context, src Source, plan Plan) sourceOutcome {
	var out sourceOutcome
	switch src {
	case SourceStructural:
		out.results = x.searchStructural(plan)
	case SourceLiteral:
		out.results, out.err = x.searchLiteral(plan)
	case SourceGraph:
		out.results, out.truncated, out.err = x.searchGraph(plan)
	case SourceSemantic:
		out.results, out.err = x.searchSemantic(ctx, plan)
	}
	return out
}

func (x *Executor) searchStructural(plan Plan) []Result {
	if plan.SymbolQuery == "" {
		return nil
	}
	symbols := x.indexes.Structural.Lookup(plan.SymbolQuery)
	if len(symbols) > x.perSource {
		symbols = symbols[:x.perSource]
	}

	results := make([]Result, 0, len(symbols))
	for _, sym := range symbols {
		results = append(results, Result{
			Source:   SourceStructural,
			Path:     sym.FilePath,
			Line:     sym.StartLine,
			EndLine:  sym.EndLine,
			Symbol:   sym.Name,
			Kind:     sym.Kind,
			Snippet:  sym.Signature,
			rawScore: 1.0,
			symbolID: sym.SymbolID,
		})
	}
	return results
}

func (x *Executor) searchLiteral(plan Plan) ([]Result, error) {
	if len(plan.LiteralQuery) < index.MinLiteralQuery {
		return nil, nil
	}
	hits, err := x.indexes.Literal.Search(plan.LiteralQuery, x.perSource)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Source:   SourceLiteral,
			Path:     hit.Path,
			Line:     hit.Line,
			Snippet:  hit.LineText,
			rawScore: 1.0,
		})
	}
	return results, nil
}

func (x *Executor) searchGraph(plan Plan) ([]Result, bool, error) {
	if plan.SymbolQuery == "" {
		return nil, false, nil
	}
	traversal := x.indexes.Graph.Dependents(plan.SymbolQuery, plan.MaxDepth)

	neighbors := traversal.Neighbors
	if len(neighbors) > x.perSource {
		neighbors = neighbors[:x.perSource]
	}
	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, Result{
			Source:  SourceGraph,
			Path:    n.Symbol.FilePath,
			Line:    n.Symbol.StartLine,
			EndLine: n.Symbol.EndLine,
			Symbol:  n.Symbol.Name,
			Kind:    n.Symbol.Kind,
			Snippet: n.Symbol.Signature,
			Depth:   n.Depth,
			// Closer dependents matter more than distant ones.
			rawScore: 1.0 / float64(n.Depth),
			symbolID: n.Symbol.SymbolID,
		})
	}
	return results, traversal.Truncated, nil
}

func (x *Executor) searchSemantic(ctx context.Context, plan Plan) ([]Result, error) {
	queryVec, err := x.embedder.Embed(ctx, plan.Query)
	if err != nil {
		return nil, err
	}
	hits := x.indexes.Semantic.Search(queryVec, x.perSource)

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Source:   SourceSemantic,
			Path:     hit.Chunk.FilePath,
			Line:     hit.Chunk.StartLine,
			EndLine:  hit.Chunk.EndLine,
			Symbol:   hit.Chunk.SymbolName,
			Kind:     hit.Chunk.Kind,
			Snippet:  snippetOf(hit.Chunk.Text),
			rawScore: hit.Score,
			symbolID: hit.Chunk.SymbolID,
		})
	}
	return results, nil
}

// selectConnectors picks the connectors the plan wants to consult. An
// empty kind list means every configured connector.
func (x *Executor) selectConnectors(plan Plan) []connector.Connector {
	wanted := make(map[connector.Kind]bool, len(plan.Kinds))
	for _, k := range plan.Kinds {
		wanted[k] = true
	}
	var conns []connector.Connector
	for _, conn := range x.connectors {
		if len(wanted) > 0 && !wanted[conn.Kind()] {
			continue
		}
		conns = append(conns, conn)
	}
	return conns
}

func (x *Executor) searchConnector(ctx context.Context, conn connector.Connector, plan Plan) ([]Result, error) {
	matches, err := conn.Search(ctx, plan.Query, connector.Constraints{
		Limit:    x.perSource,
		Channels: plan.Channels,
	})
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Source:    SourceExternal,
			Symbol:    m.Title,
			Snippet:   m.Snippet,
			URL:       m.URL,
			Connector: m.Connector,
			rawScore:  m.Score,
			updatedAt: m.UpdatedAt.Unix(),
		})
	}
	return results, nil
}

const maxSnippetLen = 240

func snippetOf(text string) string {
	if len(text) <= maxSnippetLen {
		return text
	}
	cut := maxSnippetLen
	// Never cut through the middle of a rune.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
