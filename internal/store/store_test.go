package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codanna/codanna/internal/ids"
)

func TestStoreBatchCommitAndRead(t *testing.T) {
	s := New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(FileRecord{ID: 1, Path: "a.go", Language: "go"}))
	require.NoError(t, s.AddSymbol(Symbol{ID: 1, Name: "alpha", Kind: KindFunction, FileID: 1, ModulePath: "m"}))
	require.NoError(t, s.AddSymbol(Symbol{ID: 2, Name: "beta", Kind: KindFunction, FileID: 1, ModulePath: "m"}))
	s.Commit()

	assert.Equal(t, 2, s.Size())
	found := s.FindByName("alpha")
	require.Len(t, found, 1)
	assert.Equal(t, ids.SymbolID(1), found[0].ID)

	assert.Nil(t, s.GetByID(99))
}

func TestStoreRemoveFileCascades(t *testing.T) {
	s := New()
	s.BeginBatch()
	require.NoError(t, s.SetFile(FileRecord{ID: 1, Path: "a.go", Language: "go"}))
	require.NoError(t, s.AddSymbol(Symbol{ID: 1, Name: "alpha", Kind: KindFunction, FileID: 1}))
	require.NoError(t, s.AddRelations([]Relation{{ID: 1, From: 1, To: 1, Kind: RelCalls}}))
	s.Commit()
	require.Equal(t, 1, s.Size())

	s.BeginBatch()
	require.NoError(t, s.RemoveFile(1))
	s.Commit()

	assert.Equal(t, 0, s.Size())
	assert.Nil(t, s.GetByID(1))
	assert.Empty(t, s.RelationsFrom(1))
}

func TestStoreReaderSeesPriorSnapshotDuringBatch(t *testing.T) {
	s := New()
	s.BeginBatch()
	require.NoError(t, s.AddSymbol(Symbol{ID: 1, Name: "alpha", Kind: KindFunction, FileID: 1}))
	s.Commit()

	s.BeginBatch()
	require.NoError(t, s.AddSymbol(Symbol{ID: 2, Name: "beta", Kind: KindFunction, FileID: 1}))
	// beta isn't visible to readers until Commit
	assert.Equal(t, 1, s.Size())
	s.Commit()
	assert.Equal(t, 2, s.Size())
}

func TestFuzzySearchFindsTypo(t *testing.T) {
	s := New()
	s.BeginBatch()
	require.NoError(t, s.AddSymbol(Symbol{ID: 1, Name: "findSymbol", Kind: KindFunction, FileID: 1}))
	s.Commit()

	matches := s.FuzzySearch("findSymbl", 0.6, 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "findSymbol", matches[0].Symbol.Name)
}
