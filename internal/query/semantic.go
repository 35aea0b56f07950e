package query

import (
	"context"

	"github.com/codanna/codanna/internal/store"
)

// SemanticMatch pairs a matched symbol with its similarity score and,
// for semantic_search_with_context, its immediate calls/callers/impact.
type SemanticMatch struct {
	Symbol  store.Symbol
	Score   float32
	Calls   []CallSite   // populated only by SemanticSearchWithContext
	Callers []CallSite   // populated only by SemanticSearchWithContext
	Impact  []ImpactNode // populated only by SemanticSearchWithContext
}

// SemanticSearchDocs embeds query with the configured Embedder and
// returns the symbols whose doc/signature embedding is most similar,
// filtered to score >= threshold and to lang when non-empty (spec.md §8
// S4: two files in different languages with identical doc text must be
// disambiguated by the lang filter). Returns SemanticOff guidance when no
// embedder/vector store is configured rather than erroring, since
// semantic search is an optional capability of an index.
func (e *Engine) SemanticSearchDocs(ctx context.Context, query string, lang string, threshold float64, limit int) Result[[]SemanticMatch] {
	if e.Vectors == nil || e.Embed == nil {
		return Result[[]SemanticMatch]{SystemMessage: e.Guidance.SemanticOff}
	}
	if limit <= 0 {
		limit = 20
	}

	vec, err := e.Embed.Embed(ctx, query)
	if err != nil {
		return Result[[]SemanticMatch]{SystemMessage: "embedding the query failed: " + err.Error()}
	}

	hits := e.Vectors.Search(vec, lang, limit)
	out := make([]SemanticMatch, 0, len(hits))
	for _, h := range hits {
		if float64(h.Score) < threshold {
			continue
		}
		sym := e.Store.GetByID(h.Symbol)
		if sym == nil {
			continue
		}
		out = append(out, SemanticMatch{Symbol: *sym, Score: h.Score})
	}
	if len(out) == 0 {
		return Result[[]SemanticMatch]{SystemMessage: e.Guidance.NoMatches}
	}
	return Result[[]SemanticMatch]{Value: out}
}

// SemanticSearchWithContext runs SemanticSearchDocs and, for each match,
// attaches its immediate calls, callers, and one-hop impact so a caller
// gets usage context in the same round trip instead of a follow-up
// get_calls/find_callers/analyze_impact call per result.
func (e *Engine) SemanticSearchWithContext(ctx context.Context, query string, lang string, threshold float64, limit int) Result[[]SemanticMatch] {
	res := e.SemanticSearchDocs(ctx, query, lang, threshold, limit)
	for i := range res.Value {
		sym := res.Value[i].Symbol
		res.Value[i].Calls = e.GetCalls(sym.Name).Value
		res.Value[i].Callers = e.FindCallers(sym.Name).Value
		res.Value[i].Impact = e.AnalyzeImpact(sym.Name, 1).Value
	}
	return res
}
