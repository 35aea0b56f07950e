// Package indexcoord is the Index Coordinator: file discovery honoring
// ignore files, content-hash change detection, a bounded parser worker
// pool feeding a single committer, batch commit with Phase B resolution
// and inverse-relation materialization, and fsnotify-driven watch mode
// with debounced rebuilds. Grounded on
// internal/indexing/master_index.go's scanner/processor/integrator
// pipeline shape and internal/indexing/debounced_rebuilder.go's
// timer-based debounce, generalized from the teacher's single
// trigram/symbol-index pair to the store.Store + vectorstore.Store +
// resolve two-phase engine this module builds.
package indexcoord

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/langreg"
	"github.com/codanna/codanna/internal/logging"
	"github.com/codanna/codanna/internal/parse"
	"github.com/codanna/codanna/internal/resolve"
	"github.com/codanna/codanna/internal/store"
	"github.com/codanna/codanna/internal/vectorstore"
)

// Coordinator owns the Symbol Store, Vector Store, and ID allocator for
// one project root and drives discovery -> parse -> commit.
type Coordinator struct {
	Root    string
	Store   *store.Store
	Vectors *vectorstore.Store
	IDs     *ids.Allocator
	Embed   embed.Embedder
	Workers int

	IgnorePatterns []string

	mu      sync.Mutex // serializes IndexAll/IndexPath calls against each other
	watcher *watcher
}

// New creates a Coordinator rooted at root. vectors may be nil to run
// without semantic search.
func New(root string, st *store.Store, vectors *vectorstore.Store, emb embed.Embedder, workers int) *Coordinator {
	if workers <= 0 {
		workers = 4
	}
	return &Coordinator{
		Root: root, Store: st, Vectors: vectors, Embed: emb, Workers: workers,
		IDs: ids.NewAllocator(),
	}
}

// fileIDSource lets the parser's IDSource mint SymbolIDs from the shared
// batch allocator while walking a single file.
type fileIDSource struct{ batch *ids.Batch }

func (f fileIDSource) NextSymbol() ids.SymbolID { return f.batch.NextSymbol() }

// discoveredFile is one path found by the scan phase along with its
// current content hash, used to decide Unchanged vs Staged.
type discoveredFile struct {
	path     string
	content  []byte
	hash     string
	language string
}

// parsedFile is a discoveredFile after Phase A local resolution.
type parsedFile struct {
	discoveredFile
	fileID    ids.FileID
	symbols   []store.Symbol
	relations []store.Relation
	unresolved []resolve.Unresolved
	imports   []store.Import
	parseErr  error
}

// IndexAll performs a full (force) index of Root: every matching file is
// parsed regardless of content hash and replaces its previous record.
// Files indexed earlier that are no longer discovered are not removed;
// RemoveRoot removes them.
func (c *Coordinator) IndexAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	discovered, err := c.scan(ctx)
	if err != nil {
		return err
	}
	return c.commitFiles(discovered, true)
}

// IndexPath incrementally (re)indexes one file or, if path is a
// directory, every file under it — comparing content hashes so unchanged
// files are skipped. Adding an already-indexed, unchanged file is a no-op
// (idempotent).
func (c *Coordinator) IndexPath(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("indexcoord: stat %s: %w", path, err)
	}

	var discovered []discoveredFile
	if info.IsDir() {
		discovered, err = c.scanDir(path)
	} else {
		var df *discoveredFile
		df, err = c.loadFile(path)
		if df != nil {
			discovered = []discoveredFile{*df}
		}
	}
	if err != nil {
		return err
	}
	return c.commitFiles(discovered, false)
}

// RemoveRoot removes path and every file beneath it from the store in one
// commit, cascading to their symbols, relations, and vectors. path may be
// absolute or relative to the process's working directory, or equal to
// c.Root itself to clear the whole project.
func (c *Coordinator) RemoveRoot(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	absRoot, _ := filepath.Abs(c.Root)
	absPath, _ := filepath.Abs(path)
	relTarget, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return fmt.Errorf("indexcoord: %s is not under root %s: %w", path, c.Root, err)
	}
	relTarget = filepath.ToSlash(relTarget)

	matchedFiles := map[ids.FileID]bool{}
	var matchedSymbols []ids.SymbolID
	for _, sym := range c.Store.AllSymbols() {
		fr := c.Store.GetFileInfo(sym.FileID)
		if fr == nil || !underRelRoot(fr.Path, relTarget) {
			continue
		}
		matchedFiles[fr.ID] = true
		matchedSymbols = append(matchedSymbols, sym.ID)
	}

	c.Store.BeginBatch()
	for fileID := range matchedFiles {
		if err := c.Store.RemoveFile(fileID); err != nil {
			c.Store.AbortBatch()
			return err
		}
	}
	c.Store.Commit()

	if c.Vectors != nil {
		for _, symID := range matchedSymbols {
			c.Vectors.Remove(symID)
		}
	}
	return nil
}

// underRelRoot reports whether filePath (root-relative, slash-separated)
// is equal to or nested beneath relTarget (also root-relative). relTarget
// of "." matches every file under the root.
func underRelRoot(filePath, relTarget string) bool {
	filePath = filepath.ToSlash(filePath)
	if relTarget == "." || relTarget == "" {
		return true
	}
	return filePath == relTarget || strings.HasPrefix(filePath, relTarget+"/")
}

func (c *Coordinator) scan(ctx context.Context) ([]discoveredFile, error) {
	return c.scanDir(c.Root)
}

func (c *Coordinator) scanDir(dir string) ([]discoveredFile, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if c.ignored(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.ignored(p) {
			return nil
		}
		if langreg.ForExtension(filepath.Ext(p)) != nil {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]discoveredFile, 0, len(paths))
	for _, p := range paths {
		df, err := c.loadFile(p)
		if err != nil {
			logging.Error("indexcoord", err)
			continue
		}
		out = append(out, *df)
	}
	return out, nil
}

func (c *Coordinator) ignored(path string) bool {
	rel, err := filepath.Rel(c.Root, path)
	if err != nil {
		rel = path
	}
	for _, pat := range c.IgnorePatterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (c *Coordinator) loadFile(path string) (*discoveredFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("indexcoord: read %s: %w", path, err)
	}
	desc := langreg.ForExtension(filepath.Ext(path))
	if desc == nil {
		return nil, fmt.Errorf("indexcoord: unsupported extension %s", filepath.Ext(path))
	}
	hash := fmt.Sprintf("%x", xxhash.Sum64(content))
	return &discoveredFile{path: path, content: content, hash: hash, language: desc.ID}, nil
}

// commitFiles drives the worker pool over discovered, skipping files whose
// content hash matches the store's committed FileRecord (unless force is
// set), then stages and commits the batch including Phase B.
func (c *Coordinator) commitFiles(discovered []discoveredFile, force bool) error {
	var toParse []discoveredFile
	for _, df := range discovered {
		if !langreg.IsEnabled(df.language) {
			continue
		}
		rel, _ := filepath.Rel(c.Root, df.path)
		existing := c.findExistingByPath(rel)
		if !force && existing != nil && existing.ContentHash == df.hash {
			continue
		}
		toParse = append(toParse, df)
	}
	if len(toParse) == 0 && !force {
		return nil
	}

	results := c.parseAll(toParse)

	c.Store.BeginBatch()
	relBatch := c.IDs.NewBatch()
	var allUnresolved []resolve.Unresolved
	for _, pf := range results {
		rel, _ := filepath.Rel(c.Root, pf.path)
		if existing := c.findExistingByPath(rel); existing != nil {
			if err := c.Store.RemoveFile(existing.ID); err != nil {
				c.Store.AbortBatch()
				return err
			}
			if c.Vectors != nil {
				for _, id := range existing.SymbolIDs {
					c.Vectors.Remove(id)
				}
			}
		}

		if err := c.Store.SetFile(store.FileRecord{
			ID: pf.fileID, Path: rel, ContentHash: pf.hash, Language: pf.language,
			LastIndexed: time.Now().Unix(), HasParseError: pf.parseErr != nil,
		}); err != nil {
			c.Store.AbortBatch()
			return err
		}
		if err := c.Store.SetImports(pf.fileID, pf.imports); err != nil {
			c.Store.AbortBatch()
			return err
		}
		for _, sym := range pf.symbols {
			if err := c.Store.AddSymbol(sym); err != nil {
				c.Store.AbortBatch()
				return err
			}
		}
		local := append([]store.Relation(nil), pf.relations...)
		for _, r := range pf.relations {
			if r.Kind.HasInverse() {
				local = append(local, store.Relation{ID: relBatch.NextRelation(), From: r.To, To: r.From, Kind: r.Kind.Inverse(), Site: r.Site})
			}
		}
		if err := c.Store.AddRelations(local); err != nil {
			c.Store.AbortBatch()
			return err
		}
		allUnresolved = append(allUnresolved, pf.unresolved...)
	}

	batch := resolve.ResolveCrossFile(allUnresolved, c.Store, relBatch.NextRelation)
	relBatch.Commit()
	if err := c.Store.AddRelations(batch.Relations); err != nil {
		c.Store.AbortBatch()
		return err
	}
	c.Store.IncrementUnresolved(batch.DroppedCount)
	c.Store.Commit()

	if c.Embed != nil && c.Vectors != nil {
		c.embedNewSymbols(results)
	}
	return nil
}

func (c *Coordinator) findExistingByPath(rel string) *store.FileRecord {
	for _, sym := range c.Store.AllSymbols() {
		fr := c.Store.GetFileInfo(sym.FileID)
		if fr != nil && fr.Path == rel {
			return fr
		}
	}
	return nil
}

// parseAll fans parsing out across at most c.Workers concurrent goroutines,
// capped by a weighted semaphore rather than a hand-rolled channel token
// bucket. results[i] always holds files[i]'s outcome, so commitFiles can
// zip discovered files back up with their parse results positionally.
func (c *Coordinator) parseAll(files []discoveredFile) []parsedFile {
	sem := semaphore.NewWeighted(int64(c.Workers))
	results := make([]parsedFile, len(files))

	var wg sync.WaitGroup
	for i, df := range files {
		if err := sem.Acquire(context.Background(), 1); err != nil {
			results[i] = parsedFile{discoveredFile: df, parseErr: err}
			continue
		}
		wg.Add(1)
		go func(i int, df discoveredFile) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = c.parseOne(df)
		}(i, df)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) parseOne(df discoveredFile) parsedFile {
	batch := c.IDs.NewBatch()
	fileID := batch.NextFile()

	desc := langreg.ForExtension(filepath.Ext(df.path))
	if desc == nil {
		batch.Commit()
		return parsedFile{discoveredFile: df, fileID: fileID, parseErr: fmt.Errorf("no parser for %s", df.path)}
	}
	p, ok := desc.NewParser().(parse.Parser)
	if !ok {
		batch.Commit()
		return parsedFile{discoveredFile: df, fileID: fileID, parseErr: fmt.Errorf("parser factory for %s returned wrong type", desc.ID)}
	}

	res := p.Parse(df.content, fileID, fileIDSource{batch: batch})
	for i := range res.Symbols {
		res.Symbols[i].FileID = fileID
	}

	scope := resolve.FileScope{FileID: fileID, Language: desc.ID, Symbols: res.Symbols, Relations: res.Relations, Imports: res.Imports}
	resolved := resolve.ResolveFile(scope, batch.NextRelation)

	batch.Commit()

	pf := parsedFile{
		discoveredFile: df, fileID: fileID, symbols: res.Symbols,
		relations: resolved.Relations, unresolved: resolved.Unresolved,
		imports: res.Imports, parseErr: res.ParseErr,
	}
	return pf
}

func (c *Coordinator) embedNewSymbols(results []parsedFile) {
	ctx := context.Background()
	for _, pf := range results {
		for _, sym := range pf.symbols {
			if sym.Doc == nil && sym.Signature == "" {
				continue
			}
			var summary, remarks string
			if sym.Doc != nil {
				summary, remarks = sym.Doc.Summary, sym.Doc.Remarks
			}
			text := embed.DocText(summary, remarks, sym.Signature)
			vec, err := c.Embed.Embed(ctx, text)
			if err != nil {
				logging.Error("indexcoord", err)
				continue
			}
			if err := c.Vectors.Append(sym.ID, sym.Language, vec); err != nil {
				logging.Error("indexcoord", err)
			}
		}
	}
}
