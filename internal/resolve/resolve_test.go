package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/parse"
	"github.com/codanna/codanna/internal/store"
)

func relAllocator() func() ids.RelationID {
	var n uint32
	return func() ids.RelationID {
		n++
		return ids.RelationID(n)
	}
}

// TestResolveFile_LocalCall covers the S1 scenario at the resolution layer:
// alpha calls beta in the same file, both unique names, resolves locally
// with no unresolved record produced.
func TestResolveFile_LocalCall(t *testing.T) {
	alpha := store.Symbol{ID: 1, Name: "alpha", Kind: store.KindFunction, FileID: 1, ModulePath: "m"}
	beta := store.Symbol{ID: 2, Name: "beta", Kind: store.KindFunction, FileID: 1, ModulePath: "m"}

	scope := FileScope{
		FileID:   1,
		Language: "go",
		Symbols:  []store.Symbol{alpha, beta},
		Relations: []parse.RawRelation{
			{FromContext: "m", FromName: "alpha", ToName: "beta", Kind: store.RelCalls},
		},
	}

	res := ResolveFile(scope, relAllocator())
	require.Len(t, res.Relations, 1)
	require.Empty(t, res.Unresolved)
	assert.Equal(t, alpha.ID, res.Relations[0].From)
	assert.Equal(t, beta.ID, res.Relations[0].To)
	assert.Equal(t, store.RelCalls, res.Relations[0].Kind)
}

func TestResolveFile_UnknownTargetIsUnresolved(t *testing.T) {
	alpha := store.Symbol{ID: 1, Name: "alpha", Kind: store.KindFunction, FileID: 1, ModulePath: "m"}
	scope := FileScope{
		FileID:   1,
		Language: "go",
		Symbols:  []store.Symbol{alpha},
		Relations: []parse.RawRelation{
			{FromContext: "m", FromName: "alpha", ToName: "missing", Kind: store.RelCalls},
		},
	}

	res := ResolveFile(scope, relAllocator())
	assert.Empty(t, res.Relations)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, "missing", res.Unresolved[0].TargetName)
}

// TestResolveFile_SameNameDifferentScopes covers two Go methods named String
// on different receiver types: the enclosing-scope context (receiver type,
// carried as RawRelation.FromContext) must pick the right one even though
// both share the bare name "String".
func TestResolveFile_SameNameDifferentScopes(t *testing.T) {
	fooString := store.Symbol{ID: 1, Name: "String", Kind: store.KindMethod, FileID: 1, ModulePath: "m", ExtendsType: "Foo"}
	barString := store.Symbol{ID: 2, Name: "String", Kind: store.KindMethod, FileID: 1, ModulePath: "m", ExtendsType: "Bar"}
	helper := store.Symbol{ID: 3, Name: "helper", Kind: store.KindFunction, FileID: 1, ModulePath: "m"}

	scope := FileScope{
		FileID:   1,
		Language: "go",
		Symbols:  []store.Symbol{fooString, barString, helper},
		Relations: []parse.RawRelation{
			{FromContext: "Bar", FromName: "String", ToName: "helper", Kind: store.RelCalls},
		},
	}

	res := ResolveFile(scope, relAllocator())
	require.Len(t, res.Relations, 1)
	assert.Equal(t, barString.ID, res.Relations[0].From)
	assert.Equal(t, helper.ID, res.Relations[0].To)
}

type fakeIndex struct {
	byName map[string][]store.Symbol
	fileOf map[ids.SymbolID]ids.FileID
	byID   map[ids.SymbolID]store.Symbol
}

func (f fakeIndex) ByName(name string) []store.Symbol { return f.byName[name] }
func (f fakeIndex) FileOf(id ids.SymbolID) (ids.FileID, bool) {
	fid, ok := f.fileOf[id]
	return fid, ok
}
func (f fakeIndex) Get(id ids.SymbolID) (store.Symbol, bool) {
	sym, ok := f.byID[id]
	return sym, ok
}

// TestResolveCrossFile_MaterializesInverse checks a cross-file calls
// relation gets its called-by inverse written in the same batch.
func TestResolveCrossFile_MaterializesInverse(t *testing.T) {
	caller := store.Symbol{ID: 10, Name: "caller", Kind: store.KindFunction, FileID: 1}
	callee := store.Symbol{ID: 20, Name: "callee", Kind: store.KindFunction, FileID: 2, Visibility: store.VisPublic}

	idx := fakeIndex{
		byName: map[string][]store.Symbol{"callee": {callee}},
		fileOf: map[ids.SymbolID]ids.FileID{caller.ID: 1, callee.ID: 2},
		byID:   map[ids.SymbolID]store.Symbol{caller.ID: caller},
	}

	unresolved := []Unresolved{
		{FromID: caller.ID, TargetName: "callee", Kind: store.RelCalls, Language: "go"},
	}

	batch := ResolveCrossFile(unresolved, idx, relAllocator())
	require.Len(t, batch.Relations, 2)
	assert.Equal(t, 0, batch.DroppedCount)

	var sawCalls, sawCalledBy bool
	for _, r := range batch.Relations {
		if r.Kind == store.RelCalls && r.From == caller.ID && r.To == callee.ID {
			sawCalls = true
		}
		if r.Kind == store.RelCalledBy && r.From == callee.ID && r.To == caller.ID {
			sawCalledBy = true
		}
	}
	assert.True(t, sawCalls)
	assert.True(t, sawCalledBy)
}

// TestResolveCrossFile_UsesCapturedFromKindWhenUncommitted covers the normal
// indexing path: the caller was just staged into the current open batch, so
// idx (the previously committed snapshot) doesn't know it yet. Phase B must
// check compatibility against the real kind Phase A captured, not a
// hardcoded assumption — an embeds relation from a non-struct must still be
// rejected even though the caller can't be looked up in idx.
func TestResolveCrossFile_UsesCapturedFromKindWhenUncommitted(t *testing.T) {
	embedded := store.Symbol{ID: 20, Name: "Base", Kind: store.KindStruct, FileID: 2, Visibility: store.VisPublic}
	idx := fakeIndex{
		byName: map[string][]store.Symbol{"Base": {embedded}},
		fileOf: map[ids.SymbolID]ids.FileID{},
		byID:   map[ids.SymbolID]store.Symbol{}, // caller not yet committed
	}

	// a struct embedding Base: compatible, and must resolve even though the
	// caller (the struct itself) isn't in idx yet.
	structUnresolved := []Unresolved{
		{FromID: 10, FromKind: store.KindStruct, TargetName: "Base", Kind: store.RelExtends, Language: "go"},
	}
	batch := ResolveCrossFile(structUnresolved, idx, relAllocator())
	assert.Equal(t, 0, batch.DroppedCount)
	require.NotEmpty(t, batch.Relations)

	// a function can't "extend" anything in Go; must be dropped, proving the
	// real captured kind (not a hardcoded KindFunction-is-fine default) drives
	// the compatibility check.
	funcUnresolved := []Unresolved{
		{FromID: 11, FromKind: store.KindFunction, TargetName: "Base", Kind: store.RelExtends, Language: "go"},
	}
	batch2 := ResolveCrossFile(funcUnresolved, idx, relAllocator())
	assert.Equal(t, 1, batch2.DroppedCount)
	assert.Empty(t, batch2.Relations)
}

func TestResolveCrossFile_DropsWhenNoCandidate(t *testing.T) {
	idx := fakeIndex{byName: map[string][]store.Symbol{}, fileOf: map[ids.SymbolID]ids.FileID{}}
	unresolved := []Unresolved{{FromID: 1, TargetName: "ghost", Kind: store.RelCalls, Language: "go"}}

	batch := ResolveCrossFile(unresolved, idx, relAllocator())
	assert.Empty(t, batch.Relations)
	assert.Equal(t, 1, batch.DroppedCount)
}

// TestResolveCrossFile_TieBreakSameFileWins exercises tie-break rule 1:
// same file as caller beats a second same-named public symbol elsewhere.
func TestResolveCrossFile_TieBreakSameFileWins(t *testing.T) {
	near := store.Symbol{ID: 5, Name: "run", Kind: store.KindFunction, FileID: 1, Visibility: store.VisPublic}
	far := store.Symbol{ID: 6, Name: "run", Kind: store.KindFunction, FileID: 9, Visibility: store.VisPublic}

	idx := fakeIndex{
		byName: map[string][]store.Symbol{"run": {far, near}},
		fileOf: map[ids.SymbolID]ids.FileID{1: 1},
		byID:   map[ids.SymbolID]store.Symbol{1: {ID: 1, Kind: store.KindFunction, FileID: 1}},
	}
	unresolved := []Unresolved{{FromID: 1, TargetName: "run", Kind: store.RelCalls, Language: "go"}}

	batch := ResolveCrossFile(unresolved, idx, relAllocator())
	require.NotEmpty(t, batch.Relations)
	assert.Equal(t, near.ID, batch.Relations[0].To)
}
