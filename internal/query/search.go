package query

import (
	"github.com/codanna/codanna/internal/store"
)

// defaultTokenBudget approximates spec.md §4.9's 20,000-token budget as
// response_bytes/4, grounded on codebase_intelligence_token_budget.go's
// byte-per-token heuristic.
const defaultTokenBudget = 20000

// bytesPerToken is the same rough estimator the teacher's token-budget
// enforcement uses for English/code text.
const bytesPerToken = 4

// summaryResultCount is how many results a truncated search_symbols
// response keeps, grounded on codebase_intelligence_token_budget.go's
// progressive-reduction behavior of falling back to a small, fixed page.
const summaryResultCount = 20

// SearchSymbolsParams are search_symbols' parameters (spec.md §4.9).
type SearchSymbolsParams struct {
	Query       string
	Kind        *store.SymbolKind
	Module      string
	Limit       int
	Offset      int
	SummaryOnly bool
}

// SymbolSummary is the compact projection search_symbols returns when
// truncating to fit the token budget: name, kind, and location only —
// no signature, doc, or type parameters.
type SymbolSummary struct {
	ID       uint32
	Name     string
	Kind     string
	Language string
	FileID   uint32
	Line     int
}

// SearchSymbolsResult is search_symbols' response. Exactly one of Full or
// Summaries is populated, depending on whether the result was truncated.
type SearchSymbolsResult struct {
	Full          []store.Symbol
	Summaries     []SymbolSummary
	Truncated     bool
	Total         int
	SystemMessage string
}

// SearchSymbols runs a fuzzy name search scoped by kind/module, pages the
// result by limit/offset, and auto-truncates to a compact summary when
// the full projection would exceed the token budget — annotating the
// response with a "narrow your query" system_message, exactly as
// search_symbols(query="e", limit=10000) is expected to behave (spec.md
// §8 S6).
func (e *Engine) SearchSymbols(p SearchSymbolsParams) SearchSymbolsResult {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	matches := e.Store.FuzzySearch(p.Query, 0.3, 0)
	filtered := make([]store.Symbol, 0, len(matches))
	for _, m := range matches {
		if p.Kind != nil && m.Symbol.Kind != *p.Kind {
			continue
		}
		if p.Module != "" && m.Symbol.ModulePath != p.Module {
			continue
		}
		filtered = append(filtered, m.Symbol)
	}
	total := len(filtered)

	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	page := filtered[start:end]

	if total == 0 {
		return SearchSymbolsResult{Total: 0, SystemMessage: e.Guidance.NoMatches}
	}

	if !p.SummaryOnly && estimateSymbolsBytes(page) <= defaultTokenBudget*bytesPerToken {
		return SearchSymbolsResult{Full: page, Total: total}
	}

	summaryPage := page
	if len(summaryPage) > summaryResultCount {
		summaryPage = summaryPage[:summaryResultCount]
	}
	return SearchSymbolsResult{
		Summaries:     toSummaries(summaryPage),
		Truncated:     true,
		Total:         total,
		SystemMessage: e.Guidance.NarrowQuery,
	}
}

func toSummaries(syms []store.Symbol) []SymbolSummary {
	out := make([]SymbolSummary, 0, len(syms))
	for _, s := range syms {
		out = append(out, SymbolSummary{
			ID:       uint32(s.ID),
			Name:     s.Name,
			Kind:     s.Kind.String(),
			Language: s.Language,
			FileID:   uint32(s.FileID),
			Line:     s.Range.StartLine,
		})
	}
	return out
}

// estimateSymbolsBytes approximates the serialized size of a full Symbol
// projection: name + signature + doc summary/remarks, the fields that
// dominate payload size, grounded on
// codebase_intelligence_token_budget.go's estimateResponseTokens summing
// field-by-field string lengths rather than marshaling for real.
func estimateSymbolsBytes(syms []store.Symbol) int {
	total := 0
	for _, s := range syms {
		total += len(s.Name) + len(s.Signature) + len(s.ModulePath)
		if s.Doc != nil {
			total += len(s.Doc.Summary) + len(s.Doc.Remarks)
		}
		total += 64 // fixed overhead per record: IDs, kind, visibility, range
	}
	return total
}
