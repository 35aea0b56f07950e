package query

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/store"
	"github.com/codanna/codanna/internal/vectorstore"
)

// buildCallGraphStore reproduces spec.md §8 S1: alpha calls beta in the
// same file/module, with both the calls relation and its materialized
// called-by inverse present.
func buildCallGraphStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(store.FileRecord{ID: 1, Path: "m.go", Language: "go"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 1, Name: "alpha", Kind: store.KindFunction, FileID: 1, ModulePath: "m", Language: "go"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 2, Name: "beta", Kind: store.KindFunction, FileID: 1, ModulePath: "m", Language: "go"}))
	require.NoError(t, s.AddRelations([]store.Relation{
		{ID: 1, From: 1, To: 2, Kind: store.RelCalls, Site: store.Range{StartLine: 3}},
		{ID: 2, From: 2, To: 1, Kind: store.RelCalledBy, Site: store.Range{StartLine: 3}},
	}))
	s.Commit()
	return s
}

func TestFindSymbolByNameAndByID(t *testing.T) {
	s := buildCallGraphStore(t)
	e := New(s, nil, nil)

	res := e.FindSymbol("alpha")
	require.Len(t, res.Value, 1)
	assert.Equal(t, "alpha", res.Value[0].Name)
	assert.Empty(t, res.SystemMessage)

	res = e.FindSymbol(fmt.Sprint(uint32(2)))
	require.Len(t, res.Value, 1)
	assert.Equal(t, "beta", res.Value[0].Name)

	res = e.FindSymbol("nonexistent")
	assert.Empty(t, res.Value)
	assert.Equal(t, e.Guidance.NoMatches, res.SystemMessage)
}

func TestGetCallsAndFindCallers(t *testing.T) {
	s := buildCallGraphStore(t)
	e := New(s, nil, nil)

	calls := e.GetCalls("alpha")
	require.Len(t, calls.Value, 1)
	assert.Equal(t, "beta", calls.Value[0].Symbol.Name)

	callers := e.FindCallers("beta")
	require.Len(t, callers.Value, 1)
	assert.Equal(t, "alpha", callers.Value[0].Symbol.Name)
}

func TestAnalyzeImpactIsMonotoneInDepth(t *testing.T) {
	s := store.New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(store.FileRecord{ID: 1, Path: "m.go", Language: "go"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 1, Name: "a", Kind: store.KindFunction, FileID: 1, Language: "go"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 2, Name: "b", Kind: store.KindFunction, FileID: 1, Language: "go"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 3, Name: "c", Kind: store.KindFunction, FileID: 1, Language: "go"}))
	require.NoError(t, s.AddRelations([]store.Relation{
		{ID: 1, From: 1, To: 2, Kind: store.RelCalls},
		{ID: 2, From: 2, To: 3, Kind: store.RelCalls},
	}))
	s.Commit()
	e := New(s, nil, nil)

	d0 := e.AnalyzeImpact("a", 0)
	d1 := e.AnalyzeImpact("a", 1)
	d2 := e.AnalyzeImpact("a", 2)

	assert.True(t, len(d0.Value) <= len(d1.Value))
	assert.True(t, len(d1.Value) <= len(d2.Value))

	names := func(nodes []ImpactNode) map[string]bool {
		out := map[string]bool{}
		for _, n := range nodes {
			out[n.Symbol.Name] = true
		}
		return out
	}
	n0, n1, n2 := names(d0.Value), names(d1.Value), names(d2.Value)
	for name := range n0 {
		assert.True(t, n1[name])
	}
	for name := range n1 {
		assert.True(t, n2[name])
	}
	assert.True(t, n2["b"] && n2["c"])
}

func TestSemanticSearchDisambiguatesByLanguage(t *testing.T) {
	e := embedEmbedder()
	vecPath := filepath.Join(t.TempDir(), "vectors.bin")
	vs, err := vectorstore.Open(vecPath, e)
	require.NoError(t, err)
	defer vs.Close()

	s := store.New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(store.FileRecord{ID: 1, Path: "a.rs", Language: "rust"}))
	require.NoError(t, s.SetFile(store.FileRecord{ID: 2, Path: "a.js", Language: "javascript"}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 1, Name: "load_config", Kind: store.KindFunction, FileID: 1, Language: "rust",
		Doc: &store.DocComment{Summary: "parse configuration TOML"}}))
	require.NoError(t, s.AddSymbol(store.Symbol{ID: 2, Name: "loadConfig", Kind: store.KindFunction, FileID: 2, Language: "javascript",
		Doc: &store.DocComment{Summary: "parse configuration TOML"}}))
	s.Commit()

	ctx := context.Background()
	for _, sym := range s.AllSymbols() {
		vec, err := e.Embed(ctx, sym.Doc.Summary)
		require.NoError(t, err)
		require.NoError(t, vs.Append(sym.ID, sym.Language, vec))
	}

	engine := New(s, vs, e)
	res := engine.SemanticSearchDocs(ctx, "config parsing", "rust", 0, 10)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "load_config", res.Value[0].Symbol.Name)
}

func TestSearchSymbolsTruncatesUnderSmallTokenBudget(t *testing.T) {
	s := store.New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(store.FileRecord{ID: 1, Path: "m.go", Language: "go"}))
	for i := 0; i < 200; i++ {
		require.NoError(t, s.AddSymbol(store.Symbol{
			ID: ids.SymbolID(i + 1), Name: fmt.Sprintf("entity%d", i), Kind: store.KindFunction,
			FileID: 1, Language: "go", Signature: "func entityN(ctx context.Context, opts Options) (Result, error)",
		}))
	}
	s.Commit()

	e := New(s, nil, nil)
	res := e.SearchSymbols(SearchSymbolsParams{Query: "entity", Limit: 10000})

	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Summaries), summaryResultCount)
	assert.Equal(t, e.Guidance.NarrowQuery, res.SystemMessage)
	assert.Equal(t, 200, res.Total)
}

func TestGetIndexInfoCountsByKindAndLanguage(t *testing.T) {
	s := buildCallGraphStore(t)
	e := New(s, nil, nil)

	info := e.GetIndexInfo()
	assert.Equal(t, 2, info.TotalSymbols)
	assert.Equal(t, 2, info.ByKind["function"])
	assert.Equal(t, 2, info.ByLanguage["go"])
	assert.Equal(t, 1, info.TotalFiles)
}

func embedEmbedder() *embed.LocalEmbedder { return embed.NewLocalEmbedder() }
