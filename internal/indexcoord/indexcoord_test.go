package indexcoord

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/store"
	"github.com/codanna/codanna/internal/vectorstore"

	_ "github.com/codanna/codanna/internal/langreg"
)

const fixtureSrc = `package sample

func helper() int {
	return 1
}

func main() {
	helper()
}
`

func writeFixture(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newTestCoordinator(t *testing.T, root string) *Coordinator {
	t.Helper()
	st := store.New()
	return New(root, st, nil, nil, 2)
}

func TestIndexAllParsesGoFileAndStoresSymbols(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))

	syms := c.Store.AllSymbols()
	require.NotEmpty(t, syms)

	var helperID, mainID = -1, -1
	for i, s := range syms {
		switch s.Name {
		case "helper":
			helperID = i
		case "main":
			mainID = i
		}
	}
	require.NotEqual(t, -1, helperID, "expected helper symbol to be indexed")
	require.NotEqual(t, -1, mainID, "expected main symbol to be indexed")

	rels := c.Store.RelationsFrom(syms[mainID].ID)
	found := false
	for _, r := range rels {
		if r.Kind == store.RelCalls && r.To == syms[helperID].ID {
			found = true
		}
	}
	assert.True(t, found, "expected main -> helper calls relation")
}

func TestIndexPathIsIdempotentOnUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))
	before := c.Store.Size()

	require.NoError(t, c.IndexPath(context.Background(), filepath.Join(dir, "sample.go")))
	after := c.Store.Size()

	assert.Equal(t, before, after, "reindexing an unchanged file must not duplicate symbols")
}

func TestIndexPathPicksUpChangedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte(`package sample

func helper() int { return 1 }
func another() int { return 2 }
func main() {
	helper()
	another()
}
`), 0o644))
	require.NoError(t, c.IndexPath(context.Background(), path))

	found := false
	for _, s := range c.Store.AllSymbols() {
		if s.Name == "another" {
			found = true
		}
	}
	assert.True(t, found, "expected newly added symbol to appear after reindex")
}

func TestRemoveRootCascadesRemoval(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))
	require.NotZero(t, c.Store.Size())

	require.NoError(t, c.RemoveRoot(dir))
	assert.Zero(t, c.Store.Size())
}

func TestWatchModePicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))
	defer c.StopWatching()

	require.NoError(t, c.StartWatching(20*time.Millisecond))
	require.NoError(t, c.StartWatching(20*time.Millisecond)) // idempotent

	writeFixture(t, dir, "extra.go", "package sample\n\nfunc extra() {}\n")

	deadline := time.After(2 * time.Second)
	for {
		found := false
		for _, s := range c.Store.AllSymbols() {
			if s.Name == "extra" {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for watch mode to index the new file")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatchModeStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	c := newTestCoordinator(t, dir)
	require.NoError(t, c.IndexAll(context.Background()))

	require.NoError(t, c.StartWatching(20*time.Millisecond))
	require.NoError(t, c.StopWatching())
	require.NoError(t, c.StopWatching())
}

func TestIndexAllEmbedsSymbolsWhenEmbedderConfigured(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sample.go", fixtureSrc)

	vecPath := filepath.Join(t.TempDir(), "vectors.bin")
	e := embed.NewLocalEmbedder()
	vs, err := vectorstore.Open(vecPath, e)
	require.NoError(t, err)
	defer vs.Close()

	st := store.New()
	c := New(dir, st, vs, e, 2)
	require.NoError(t, c.IndexAll(context.Background()))

	assert.NotZero(t, vs.Count())
}
