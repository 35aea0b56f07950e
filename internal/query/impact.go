package query

import (
	"sort"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/store"
)

// impactKinds is the fixed set of relation kinds analyze_impact follows
// outward (spec.md §4.9: "transitive closure across {calls, uses,
// extends, implements}").
var impactKinds = [...]store.RelationKind{store.RelCalls, store.RelUses, store.RelExtends, store.RelImplements}

// ImpactNode is one symbol reached by analyze_impact, at the breadth-first
// depth it was first discovered at.
type ImpactNode struct {
	Symbol store.Symbol
	Depth  int
}

// AnalyzeImpact computes the transitive closure of target's outgoing
// calls/uses/extends/implements edges, breadth-first, up to maxDepth
// hops. Every symbol matching target by name seeds the traversal
// (spec.md §4.9: "identical names aggregate impact across every matching
// symbol"). Ties at the same depth are broken by SymbolId, so the result
// is deterministic and, per spec.md §8 property 7, monotone in maxDepth:
// the set at depth d+1 is always a superset of the set at depth d.
func (e *Engine) AnalyzeImpact(target string, maxDepth int) Result[[]ImpactNode] {
	seeds := e.resolveTarget(target)
	if len(seeds) == 0 {
		return Result[[]ImpactNode]{SystemMessage: e.Guidance.NoMatches}
	}

	depth := map[ids.SymbolID]int{}
	for _, s := range seeds {
		depth[s.ID] = 0
	}
	frontier := make([]ids.SymbolID, 0, len(seeds))
	for _, s := range seeds {
		frontier = append(frontier, s.ID)
	}

	for d := 0; d < maxDepth && len(frontier) > 0; d++ {
		next := map[ids.SymbolID]bool{}
		for _, id := range frontier {
			for _, kind := range impactKinds {
				for _, r := range e.Store.RelationsFrom(id) {
					if r.Kind != kind {
						continue
					}
					if _, seen := depth[r.To]; seen {
						continue
					}
					next[r.To] = true
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = frontier[:0]
		for id := range next {
			depth[id] = d + 1
			frontier = append(frontier, id)
		}
	}

	out := make([]ImpactNode, 0, len(depth))
	for id, d := range depth {
		if sym := e.Store.GetByID(id); sym != nil {
			out = append(out, ImpactNode{Symbol: *sym, Depth: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Symbol.ID < out[j].Symbol.ID
	})
	return Result[[]ImpactNode]{Value: out}
}
