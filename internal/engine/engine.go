package engine

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samueljklee/codescout/internal/connector"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/store"
)

// Options tune the engine. Zero values fall back to sane defaults.
type Options struct {
	Timeout    time.Duration
	MaxResults int
	MaxDepth   int
	CacheTTL   time.Duration
	CacheSize  int
}

func (o *Options) fill() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 50
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
}

// Engine is the search front door. It validates, plans, executes, and
// ranks; the indexes stay live underneath it, so answers always reflect
// the current indexed state.
type Engine struct {
	db       *store.DB
	indexes  *index.Set
	analyzer *Analyzer
	executor *Executor
	ranker   *Ranker
	cache    *queryCache
	opts     Options
}

func New(db *store.DB, indexes *index.Set, embedder embed.Embedder, connectors []connector.Connector, opts Options) *Engine {
	opts.fill()
	return &Engine{
		db:       db,
		indexes:  indexes,
		analyzer: NewAnalyzer(opts.MaxDepth),
		executor: NewExecutor(indexes, embedder, connectors, opts.Timeout, opts.MaxResults),
		ranker:   NewRanker(),
		cache:    newQueryCache(opts.CacheTTL, opts.CacheSize),
		opts:     opts,
	}
}

// Search answers one query. Partial answers are answers: source
// failures and timeouts degrade the response and are reported in the
// diagnostics rather than failing the call. The only errors returned
// are invalid requests.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if resp, ok := e.cache.get(req); ok {
		cacheHits.Inc()
		cached := *resp
		cached.Diagnostics.CacheHit = true
		return &cached, nil
	}

	start := time.Now()
	plan := e.analyzer.Analyze(req)
	queryID := uuid.NewString()
	log.Printf("🔍 Query %s: intent=%s sources=%v", queryID, plan.Intent, plan.Sources)

	results, diag := e.executor.Execute(ctx, plan, queryID)
	results = e.filterScope(results, req.Scope)
	e.stampRecency(ctx, results)

	limit := req.Limit
	if limit <= 0 || limit > e.opts.MaxResults {
		limit = e.opts.MaxResults
	}
	ranked := e.ranker.Rank(results, plan.Intent, e.indexes.Graph.Centrality(), limit)

	diag.Duration = time.Since(start)
	queriesTotal.WithLabelValues(string(plan.Intent)).Inc()
	queryDuration.WithLabelValues(string(plan.Intent)).Observe(diag.Duration.Seconds())
	if diag.Partial {
		partialResponses.Inc()
	}

	resp := &Response{Results: ranked, QueryInterpretation: plan.Interpretation(), Diagnostics: diag}
	e.cache.put(req, resp)
	return resp, nil
}

// Cycles reports dependency cycles in the indexed relationship graph.
func (e *Engine) Cycles() []index.Cycle {
	return e.indexes.Graph.FindCycles()
}

// Dependents walks the graph toward callers and importers of a symbol.
func (e *Engine) Dependents(name string, maxDepth int) (index.Traversal, error) {
	return e.traverse(name, maxDepth, e.indexes.Graph.Dependents)
}

// Dependencies walks the graph toward what a symbol uses.
func (e *Engine) Dependencies(name string, maxDepth int) (index.Traversal, error) {
	return e.traverse(name, maxDepth, e.indexes.Graph.Dependencies)
}

func (e *Engine) traverse(name string, maxDepth int, walk func(string, int) index.Traversal) (index.Traversal, error) {
	if strings.TrimSpace(name) == "" {
		return index.Traversal{}, &ValidationError{Problems: []string{"symbol: must not be blank"}}
	}
	if maxDepth <= 0 {
		maxDepth = e.opts.MaxDepth
	}
	return walk(name, maxDepth), nil
}

// InvalidateCache drops cached responses. The indexer calls this after
// every index mutation so a cache hit never predates the change.
func (e *Engine) InvalidateCache() {
	e.cache.invalidate()
}

func (e *Engine) filterScope(results []Result, scope string) []Result {
	if scope == "" {
		return results
	}
	out := results[:0]
	for _, res := range results {
		// External results have no path; scope does not exclude them.
		if res.Path == "" || matchScope(scope, res.Path) {
			out = append(out, res)
		}
	}
	return out
}

// matchScope treats the scope as a path glob; a trailing slash or a
// bare directory name matches everything beneath it.
func matchScope(scope, p string) bool {
	scope = strings.TrimSuffix(scope, "/")
	if p == scope || strings.HasPrefix(p, scope+"/") {
		return true
	}
	if ok, err := path.Match(scope, p); err == nil && ok {
		return true
	}
	// "internal/**/*.go" style: match each path prefix too.
	if strings.Contains(scope, "**") {
		flat := strings.ReplaceAll(scope, "**/", "")
		if ok, _ := path.Match(flat, path.Base(p)); ok {
			return true
		}
	}
	return false
}

// stampRecency attaches file modification times so the ranker can favor
// recently touched code. Failure to read them only costs the recency
// term.
func (e *Engine) stampRecency(ctx context.Context, results []Result) {
	if e.db == nil {
		return
	}
	files, err := e.db.AllFiles(ctx)
	if err != nil {
		log.Printf("⚠️ Recency lookup failed: %v", err)
		return
	}
	mtimes := make(map[string]int64, len(files))
	for _, f := range files {
		mtimes[f.Path] = f.MtimeUnix
	}
	for i := range results {
		if results[i].updatedAt == 0 && results[i].Path != "" {
			results[i].updatedAt = mtimes[results[i].Path]
		}
	}
}

// Stats summarizes index state for status output.
func (e *Engine) Stats() string {
	return fmt.Sprintf("symbols=%d edges=%d vectors=%d",
		e.indexes.Structural.Count(), e.indexes.Graph.EdgeCount(), e.indexes.Semantic.Count())
}
