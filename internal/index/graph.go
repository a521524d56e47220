package index

import (
	"sort"
	"sync"

	"github.com/samueljklee/codescout/internal/store"
)

// CycleSeverity classifies a dependency cycle.
type CycleSeverity string

const (
	// SeverityError marks cycles carried by at least one import edge.
	SeverityError CycleSeverity = "error"
	// SeverityWarning marks cycles held together by calls alone.
	SeverityWarning CycleSeverity = "warning"
)

// Cycle is one strongly connected component of size two or more, or a
// self-referencing symbol.
type Cycle struct {
	Members  []store.Symbol
	Severity CycleSeverity
}

// Neighbor is one symbol reached during a graph traversal.
type Neighbor struct {
	Symbol store.Symbol
	Via    store.EdgeType
	Line   int
	Depth  int
}

// Traversal is the result of a bounded walk. Truncated reports that the
// depth limit cut the walk short, not that the graph ends there.
type Traversal struct {
	Neighbors []Neighbor
	Truncated bool
}

// Graph is the relationship index. Edges are stored per file with raw
// target names; resolution against the live symbol table happens at query
// time, so the answer reflects whatever files are indexed right now
// regardless of the order they arrived in.
type Graph struct {
	mu      sync.RWMutex
	byFile  map[int64][]store.Edge
	symbols *Structural
}

func NewGraph(symbols *Structural) *Graph {
	return &Graph{
		byFile:  make(map[int64][]store.Edge),
		symbols: symbols,
	}
}

// ReplaceFile swaps a file's outgoing edges in one critical section.
func (g *Graph) ReplaceFile(fileID int64, edges []store.Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(edges) == 0 {
		delete(g.byFile, fileID)
		return
	}
	owned := make([]store.Edge, len(edges))
	copy(owned, edges)
	g.byFile[fileID] = owned
}

func (g *Graph) RemoveFile(fileID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byFile, fileID)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, edges := range g.byFile {
		n += len(edges)
	}
	return n
}

// resolvedEdge is an edge with its target pinned to a concrete symbol.
type resolvedEdge struct {
	source string
	target string
	typ    store.EdgeType
	line   int
}

// resolve maps every stored edge onto the current symbol table. Targets
// that resolve to nothing (standard library imports, external names) are
// dropped; an ambiguous name fans out to every symbol carrying it. A
// symbol referencing itself keeps its edge so recursion shows up as a
// self-loop cycle.
func (g *Graph) resolve() []resolvedEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []resolvedEdge
	for _, edges := range g.byFile {
		for _, e := range edges {
			for _, target := range g.symbols.ByName(e.TargetName) {
				out = append(out, resolvedEdge{
					source: e.SourceID,
					target: target.SymbolID,
					typ:    e.Type,
					line:   e.Line,
				})
			}
		}
	}
	return out
}

// Dependents walks callers and importers of every symbol named name, up to
// maxDepth hops. Depth 1 is a direct reference.
func (g *Graph) Dependents(name string, maxDepth int) Traversal {
	roots := g.symbols.ByName(name)
	reverse := make(map[string][]resolvedEdge)
	for _, e := range g.resolve() {
		reverse[e.target] = append(reverse[e.target], e)
	}
	return g.walk(roots, reverse, maxDepth, func(e resolvedEdge) string { return e.source })
}

// Dependencies walks everything symbols named name reach, up to maxDepth.
func (g *Graph) Dependencies(name string, maxDepth int) Traversal {
	roots := g.symbols.ByName(name)
	forward := make(map[string][]resolvedEdge)
	for _, e := range g.resolve() {
		forward[e.source] = append(forward[e.source], e)
	}
	return g.walk(roots, forward, maxDepth, func(e resolvedEdge) string { return e.target })
}

func (g *Graph) walk(roots []store.Symbol, adj map[string][]resolvedEdge, maxDepth int, next func(resolvedEdge) string) Traversal {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	visited := make(map[string]bool, len(roots))
	frontier := make([]string, 0, len(roots))
	for _, r := range roots {
		visited[r.SymbolID] = true
		frontier = append(frontier, r.SymbolID)
	}

	var result Traversal
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier []string
		for _, id := range frontier {
			for _, e := range adj[id] {
				nid := next(e)
				if visited[nid] {
					continue
				}
				visited[nid] = true
				sym, ok := g.symbols.ByID(nid)
				if !ok {
					continue
				}
				result.Neighbors = append(result.Neighbors, Neighbor{
					Symbol: sym,
					Via:    e.typ,
					Line:   e.line,
					Depth:  depth,
				})
				nextFrontier = append(nextFrontier, nid)
			}
		}
		frontier = nextFrontier
	}

	// Anything still reachable past the horizon means the walk was cut.
	if len(frontier) > 0 {
		for _, id := range frontier {
			for _, e := range adj[id] {
				if !visited[next(e)] {
					result.Truncated = true
					break
				}
			}
			if result.Truncated {
				break
			}
		}
	}

	sort.Slice(result.Neighbors, func(i, j int) bool {
		a, b := result.Neighbors[i], result.Neighbors[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Symbol.FilePath != b.Symbol.FilePath {
			return a.Symbol.FilePath < b.Symbol.FilePath
		}
		return a.Symbol.StartLine < b.Symbol.StartLine
	})
	return result
}

// FindCycles runs Tarjan's strongly connected components over the resolved
// graph and reports every component of size two or more, plus genuine
// self-loops. Cycles carried by an import edge are errors; call-only
// cycles are warnings.
func (g *Graph) FindCycles() []Cycle {
	edges := g.resolve()

	adj := make(map[string][]resolvedEdge)
	nodes := make(map[string]bool)
	for _, e := range edges {
		adj[e.source] = append(adj[e.source], e)
		nodes[e.source] = true
		nodes[e.target] = true
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type tarjanState struct {
		index   int
		lowlink int
		onStack bool
	}

	state := make(map[string]*tarjanState, len(ids))
	var stack []string
	indexCounter := 0
	var components [][]string

	var strongconnect func(u string)
	strongconnect = func(u string) {
		state[u] = &tarjanState{index: indexCounter, lowlink: indexCounter, onStack: true}
		indexCounter++
		stack = append(stack, u)

		for _, e := range adj[u] {
			v := e.target
			if _, exists := state[v]; !exists {
				strongconnect(v)
				if state[v].lowlink < state[u].lowlink {
					state[u].lowlink = state[v].lowlink
				}
			} else if state[v].onStack {
				if state[v].index < state[u].lowlink {
					state[u].lowlink = state[v].index
				}
			}
		}

		if state[u].lowlink == state[u].index {
			var members []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				if w == u {
					break
				}
			}
			components = append(components, members)
		}
	}

	for _, id := range ids {
		if _, exists := state[id]; !exists {
			strongconnect(id)
		}
	}

	var cycles []Cycle
	for _, members := range components {
		if len(members) == 1 && !hasSelfLoop(adj, members[0]) {
			continue
		}

		inComponent := make(map[string]bool, len(members))
		for _, m := range members {
			inComponent[m] = true
		}

		severity := SeverityWarning
		for _, m := range members {
			for _, e := range adj[m] {
				if inComponent[e.target] && e.typ == store.EdgeImport {
					severity = SeverityError
					break
				}
			}
			if severity == SeverityError {
				break
			}
		}

		var symbols []store.Symbol
		for _, m := range members {
			if sym, ok := g.symbols.ByID(m); ok {
				symbols = append(symbols, sym)
			}
		}
		if len(symbols) == 0 {
			continue
		}
		sortSymbols(symbols)
		cycles = append(cycles, Cycle{Members: symbols, Severity: severity})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Members[0].FilePath < cycles[j].Members[0].FilePath
	})
	return cycles
}

func hasSelfLoop(adj map[string][]resolvedEdge, id string) bool {
	for _, e := range adj[id] {
		if e.target == id {
			return true
		}
	}
	return false
}

// Centrality scores every symbol by normalized in-degree: how much of the
// codebase points at it. The hub of the graph scores 1.0.
func (g *Graph) Centrality() map[string]float64 {
	inDegree := make(map[string]int)
	for _, e := range g.resolve() {
		// A symbol referencing itself is recursion, not prominence.
		if e.target == e.source {
			continue
		}
		inDegree[e.target]++
	}

	max := 0
	for _, d := range inDegree {
		if d > max {
			max = d
		}
	}
	if max == 0 {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(inDegree))
	for id, d := range inDegree {
		out[id] = float64(d) / float64(max)
	}
	return out
}
