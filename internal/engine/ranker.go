package engine

import (
	"math"
	"sort"
	"time"
)

// Ranking weights. The normalized source score dominates; recency,
// centrality, and the intent bonus nudge the order without letting a
// stale but popular symbol outrank a direct hit.
const (
	weightScore      = 0.60
	weightRecency    = 0.15
	weightCentrality = 0.15
	weightIntent     = 0.10

	// recencyHalfLife controls the decay of the recency term.
	recencyHalfLife = 30 * 24 * time.Hour
)

// intentBonus names the source each intent trusts most.
var intentBonus = map[Intent]Source{
	IntentDiscovery:         SourceSemantic,
	IntentSymbolLookup:      SourceStructural,
	IntentImpactAnalysis:    SourceGraph,
	IntentHistoricalContext: SourceExternal,
	IntentDebug:             SourceLiteral,
}

// Ranker merges raw per-source results into one ordered list. Scores
// from different sources are not comparable, so each source is min-max
// normalized to [0,1] before the weighted terms are combined.
type Ranker struct {
	now func() time.Time
}

func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// Rank normalizes, scores, dedups, and orders results. centrality maps
// symbol IDs to their in-degree share of the graph; missing entries
// score zero. The order is total: equal scores fall back to source
// precision, then path, then line, so a query ranks identically on
// every run.
func (r *Ranker) Rank(results []Result, intent Intent, centrality map[string]float64, limit int) []Result {
	if len(results) == 0 {
		return nil
	}

	normalizePerSource(results)

	now := r.now()
	for i := range results {
		res := &results[i]
		score := weightScore * res.rawScore
		score += weightRecency * recencyTerm(res.updatedAt, now)
		if res.symbolID != "" {
			score += weightCentrality * centrality[res.symbolID]
		}
		if intentBonus[intent] == res.Source {
			score += weightIntent
		}
		res.Score = score
	}

	results = dedup(results)

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if sourcePriority[a.Source] != sourcePriority[b.Source] {
			return sourcePriority[a.Source] < sourcePriority[b.Source]
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// normalizePerSource rescales rawScore to [0,1] within each source.
// A source whose scores are all equal normalizes to 1.0: one hit from
// a precise index should not score zero just because it is alone.
func normalizePerSource(results []Result) {
	min := make(map[Source]float64)
	max := make(map[Source]float64)
	for _, res := range results {
		lo, ok := min[res.Source]
		if !ok || res.rawScore < lo {
			min[res.Source] = res.rawScore
		}
		if hi, ok := max[res.Source]; !ok || res.rawScore > hi {
			max[res.Source] = res.rawScore
		}
	}
	for i := range results {
		res := &results[i]
		span := max[res.Source] - min[res.Source]
		if span == 0 {
			res.rawScore = 1.0
			continue
		}
		res.rawScore = (res.rawScore - min[res.Source]) / span
	}
}

func recencyTerm(updatedAt int64, now time.Time) float64 {
	if updatedAt <= 0 {
		return 0
	}
	age := now.Sub(time.Unix(updatedAt, 0))
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(recencyHalfLife))
}

// dedup collapses results that point at the same place. Code results
// collide on path plus overlapping line span; external results collide
// on connector plus URL. The higher-scored duplicate survives.
func dedup(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].Line < results[j].Line
	})

	var out []Result
	seen := make(map[string]int)
	for _, res := range results {
		if res.Source == SourceExternal {
			key := res.Connector + "|" + res.URL
			if idx, ok := seen[key]; ok {
				out[idx] = mergeResults(out[idx], res)
				continue
			}
			seen[key] = len(out)
			out = append(out, res)
			continue
		}

		merged := false
		for i := len(out) - 1; i >= 0; i-- {
			prev := &out[i]
			if prev.Source == SourceExternal || prev.Path != res.Path {
				break
			}
			if overlaps(*prev, res) {
				*prev = mergeResults(*prev, res)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, res)
		}
	}
	return out
}

// mergeResults collapses two results for the same location: the higher
// score wins and the loser's source joins the winner's cross-references.
func mergeResults(a, b Result) Result {
	winner, loser := a, b
	if b.Score > a.Score {
		winner, loser = b, a
	}
	winner.CrossRefs = append(winner.CrossRefs, loser.CrossRefs...)
	if loser.Source != winner.Source && !containsRef(winner.CrossRefs, string(loser.Source)) {
		winner.CrossRefs = append(winner.CrossRefs, string(loser.Source))
	}
	return winner
}

func containsRef(refs []string, ref string) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

// overlaps reports whether two code results cover intersecting line
// ranges of the same file. A result with no end line covers just its
// start line.
func overlaps(a, b Result) bool {
	aEnd := a.EndLine
	if aEnd < a.Line {
		aEnd = a.Line
	}
	bEnd := b.EndLine
	if bEnd < b.Line {
		bEnd = b.Line
	}
	return a.Line <= bEnd && b.Line <= aEnd
}
