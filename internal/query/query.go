// Package query implements the Query Layer: the single read-only facade
// the transport and command layers call through (neither ever touches
// internal/store or internal/vectorstore directly). Every response
// carries an optional system_message guidance field, grounded on
// internal/mcp/handlers.go's response-envelope convention, and
// search_symbols enforces a token budget with progressive truncation,
// grounded on internal/mcp/codebase_intelligence_token_budget.go and
// formatter_compact.go.
package query

import (
	"sort"
	"strconv"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/store"
	"github.com/codanna/codanna/internal/vectorstore"
)

// Engine is the Query Layer. It holds no write methods — every field is
// read through the Symbol Store's snapshot-isolated accessors or the
// Vector Store's search, both safe for concurrent use from any number of
// callers while the Index Coordinator keeps writing in the background.
type Engine struct {
	Store    *store.Store
	Vectors  *vectorstore.Store // nil disables semantic_search_*
	Embed    embed.Embedder     // nil disables semantic_search_*
	Guidance Guidance
}

// New creates a Query Layer over store (required), and an optional
// vector store + embedder pair for semantic search.
func New(st *store.Store, vectors *vectorstore.Store, emb embed.Embedder) *Engine {
	return &Engine{Store: st, Vectors: vectors, Embed: emb, Guidance: DefaultGuidance()}
}

// Guidance holds the system_message templates surfaced on responses that
// warrant caller guidance (truncation, ambiguous matches, empty results).
// A caller may override any field; zero-value fields fall back to no
// message for that situation.
type Guidance struct {
	NarrowQuery   string
	Ambiguous     string
	NoMatches     string
	SemanticOff   string
}

// DefaultGuidance returns the built-in guidance templates.
func DefaultGuidance() Guidance {
	return Guidance{
		NarrowQuery: "response truncated to fit the token budget; narrow your query (add a kind/module filter or a more specific substring) to see more results",
		Ambiguous:   "multiple symbols share this name; disambiguate with a module path or symbol_id",
		NoMatches:   "no matching symbols found",
		SemanticOff: "semantic search is unavailable: no embedder/vector store configured for this index",
	}
}

// resolveSymbolID parses s as a numeric SymbolID; ok is false if s isn't
// a plain unsigned integer, in which case callers should treat s as a
// name instead.
func resolveSymbolID(s string) (ids.SymbolID, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return ids.SymbolID(n), true
}

// FindSymbol resolves name as a SymbolID first (find_symbol accepts
// either a name or a symbol_id per spec.md §4.9); if it doesn't parse as
// one, every symbol with that exact name is returned.
func (e *Engine) FindSymbol(name string) Result[[]store.Symbol] {
	if id, ok := resolveSymbolID(name); ok {
		if sym := e.Store.GetByID(id); sym != nil {
			return Result[[]store.Symbol]{Value: []store.Symbol{*sym}}
		}
		return Result[[]store.Symbol]{Value: nil, SystemMessage: e.Guidance.NoMatches}
	}

	matches := e.Store.FindByName(name)
	msg := ""
	switch {
	case len(matches) == 0:
		msg = e.Guidance.NoMatches
	case len(matches) > 1:
		msg = e.Guidance.Ambiguous
	}
	return Result[[]store.Symbol]{Value: matches, SystemMessage: msg}
}

// Result wraps any Query Layer payload with the system_message guidance
// field every response carries.
type Result[T any] struct {
	Value         T
	SystemMessage string `json:"system_message,omitempty"`
}

// CallSite pairs a symbol with the source range of one call/use/etc. to
// or from it.
type CallSite struct {
	Symbol store.Symbol
	Site   store.Range
}

// GetCalls returns every symbol that target calls, with the call site.
// target may be a name or symbol_id; when a name matches several
// symbols, calls from all of them are aggregated.
func (e *Engine) GetCalls(target string) Result[[]CallSite] {
	return e.relatedVia(target, store.RelCalls)
}

// FindCallers returns every symbol that calls target, with the call
// site. Aggregates across every symbol matching target by name.
func (e *Engine) FindCallers(target string) Result[[]CallSite] {
	return e.relatedVia(target, store.RelCalledBy)
}

func (e *Engine) relatedVia(target string, kind store.RelationKind) Result[[]CallSite] {
	symbols := e.resolveTarget(target)
	if len(symbols) == 0 {
		return Result[[]CallSite]{SystemMessage: e.Guidance.NoMatches}
	}

	var out []CallSite
	seen := map[ids.RelationID]bool{}
	for _, sym := range symbols {
		// calls and called-by relations both start at sym: a called-by
		// inverse runs from the callee to its caller.
		for _, r := range e.Store.RelationsFrom(sym.ID) {
			if r.Kind != kind || seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			if other := e.Store.GetByID(r.To); other != nil {
				out = append(out, CallSite{Symbol: *other, Site: r.Site})
			}
		}
	}
	sortCallSites(out)
	return Result[[]CallSite]{Value: out}
}

func (e *Engine) resolveTarget(target string) []store.Symbol {
	if id, ok := resolveSymbolID(target); ok {
		if sym := e.Store.GetByID(id); sym != nil {
			return []store.Symbol{*sym}
		}
		return nil
	}
	return e.Store.FindByName(target)
}

func sortCallSites(cs []CallSite) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Symbol.ID < cs[j].Symbol.ID })
}

// GetIndexInfo summarizes the index: counts by kind and language,
// embedding coverage, the unresolved-relation count, and the embedding
// model identity (empty if semantic search is disabled).
type IndexInfo struct {
	TotalSymbols      int
	ByKind            map[string]int
	ByLanguage        map[string]int
	TotalFiles        int
	EmbeddedSymbols   int
	UnresolvedCount   int
	EmbeddingModelID  string
}

func (e *Engine) GetIndexInfo() IndexInfo {
	info := IndexInfo{
		ByKind:          map[string]int{},
		ByLanguage:      map[string]int{},
		UnresolvedCount: e.Store.UnresolvedCount(),
	}
	files := map[ids.FileID]bool{}
	for _, s := range e.Store.AllSymbols() {
		info.TotalSymbols++
		info.ByKind[s.Kind.String()]++
		info.ByLanguage[s.Language]++
		files[s.FileID] = true
	}
	info.TotalFiles = len(files)
	if e.Vectors != nil {
		info.EmbeddedSymbols = e.Vectors.Count()
		info.EmbeddingModelID = e.Vectors.ModelID()
	}
	return info
}
