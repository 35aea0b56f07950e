package indexcoord

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codanna/codanna/internal/langreg"
	"github.com/codanna/codanna/internal/logging"
)

// watcher drives fsnotify-based watch mode for a Coordinator: it keeps
// recursive directory watches live as the tree changes, debounces bursts
// of events per path, and replays the debounced set through IndexPath /
// RemoveRoot. Grounded on the teacher's FileWatcher/eventDebouncer pair,
// generalized from its config.Config-driven include/exclude matching to
// the Coordinator's own ignore patterns and langreg-based extension
// filter.
type watcher struct {
	coord *Coordinator
	fs    *fsnotify.Watcher

	debounce time.Duration
	mu       sync.Mutex
	changed  map[string]bool
	removed  map[string]bool
	timer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onError func(error)
}

// WatchDefaultDebounce is used when StartWatching is called with a
// non-positive debounce duration.
const WatchDefaultDebounce = 300 * time.Millisecond

// StartWatching begins fsnotify-driven watch mode over c.Root: new files
// are indexed, changed files are reindexed, removed files are evicted,
// and new subdirectories are watched as they appear. A bare Coordinator
// only indexes on explicit IndexAll/IndexPath calls; StartWatching is
// what makes it track the filesystem continuously. It is idempotent —
// calling it again while already watching is a no-op.
func (c *Coordinator) StartWatching(debounce time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		return nil
	}
	if debounce <= 0 {
		debounce = WatchDefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("indexcoord: create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		coord:    c,
		fs:       fsw,
		debounce: debounce,
		changed:  make(map[string]bool),
		removed:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
		onError:  func(err error) { logging.Error("indexcoord", err) },
	}

	if err := w.addTreeWatches(c.Root); err != nil {
		fsw.Close()
		cancel()
		return fmt.Errorf("indexcoord: watch %s: %w", c.Root, err)
	}

	w.wg.Add(1)
	go w.processEvents()

	c.watcher = w
	return nil
}

// StopWatching stops watch mode. It is idempotent — calling it when not
// watching is a no-op.
func (c *Coordinator) StopWatching() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	w.cancel()

	// Stop any pending debounce timer so a flush doesn't land after Stop
	// returns and race the caller tearing down the Store underneath it.
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// addTreeWatches recursively registers fsnotify watches on dir and every
// non-ignored subdirectory beneath it, following the teacher's
// symlink-cycle guard.
func (w *watcher) addTreeWatches(dir string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(p)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.coord.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			logging.Error("indexcoord", fmt.Errorf("watch %s: %w", p, err))
		}
		return nil
	})
}

func (w *watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *watcher) handleEvent(ev fsnotify.Event) {
	info, err := os.Stat(ev.Name)
	if err != nil {
		if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
			w.queue(ev.Name, true)
		}
		return
	}
	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 && !w.coord.ignored(ev.Name) {
			if err := w.fs.Add(ev.Name); err != nil {
				logging.Error("indexcoord", fmt.Errorf("watch new dir %s: %w", ev.Name, err))
			}
		}
		return
	}
	if w.coord.ignored(ev.Name) {
		return
	}
	if langreg.ForExtension(filepath.Ext(ev.Name)) == nil {
		return
	}
	switch {
	case ev.Op&fsnotify.Remove != 0:
		w.queue(ev.Name, true)
	case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0:
		w.queue(ev.Name, false)
	}
}

// queue records path's latest event (debounced: later events for the
// same path overwrite earlier ones) and resets the flush timer.
func (w *watcher) queue(path string, remove bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if remove {
		w.removed[path] = true
		delete(w.changed, path)
	} else {
		w.changed[path] = true
		delete(w.removed, path)
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush replays the debounced event set through the Coordinator. Removals
// are applied before additions/changes, same order as the teacher's
// debouncer, so a remove-then-recreate at the same path lands correctly.
func (w *watcher) flush() {
	w.mu.Lock()
	removed := w.removed
	changed := w.changed
	w.removed = make(map[string]bool)
	w.changed = make(map[string]bool)
	w.mu.Unlock()

	ctx := context.Background()
	for path := range removed {
		if err := w.coord.RemoveRoot(path); err != nil {
			w.onError(fmt.Errorf("remove %s: %w", path, err))
		}
	}
	for path := range changed {
		if err := w.coord.IndexPath(ctx, path); err != nil {
			w.onError(fmt.Errorf("index %s: %w", path, err))
		}
	}
}
