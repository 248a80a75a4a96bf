// Package watcher watches inbox directories with fsnotify and hands settled changes to the
// pipeline in batches, so a burst of copied files becomes one ingestion.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Batch is a set of settled file changes. A path appears in at most one of the two lists.
type Batch struct {
	Changed []string
	Removed []string
}

// Empty reports whether the batch carries no changes.
func (b Batch) Empty() bool {
	return len(b.Changed) == 0 && len(b.Removed) == 0
}

// Sink receives batches. Calls are serialized.
type Sink func(ctx context.Context, batch Batch)

// Watcher watches root directories and delivers debounced batches to a Sink.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	sink       Sink
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	rootPaths map[string][]string // root -> directories added to fsnotify
	pending   map[string]bool     // path -> removed
	timer     *time.Timer
	ctx       context.Context
	started   bool
	done      chan struct{}
	stopOnce  sync.Once

	flushMu sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long the watcher waits for events to settle before flushing a batch.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over roots. extensions filters files (empty = all).
func NewWatcher(roots []string, extensions []string, recursive bool, sink Sink, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		sink:       sink,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		rootPaths:  make(map[string][]string),
		pending:    make(map[string]bool),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Start starts watching. It runs until ctx is cancelled or Stop is called. Missing roots are
// created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.started = true
	w.ctx = ctx
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			w.roots[i] = abs
			root = abs
		}
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	events, errs := fw.Events, fw.Errors
	w.mu.Unlock()
	go w.run(ctx, events, errs)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if w.matchExtension(path) {
			w.enqueue(path, true)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matchExtension(path) {
			w.enqueue(path, false)
		}
	}
}

// handleNewDirectory watches a directory created (or moved) under a root and queues its files.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if recursive {
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if err := fw.Add(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fw.Add(dirPath); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
	}
	for _, p := range w.listFiles(dirPath) {
		w.enqueue(p, false)
	}
}

// enqueue records a change and restarts the debounce timer. The last event for a path wins.
func (w *Watcher) enqueue(path string, removed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.Clean(path)] = removed
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.Flush)
}

// Flush delivers pending changes immediately. It is a no-op when nothing is pending.
func (w *Watcher) Flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	var batch Batch
	for path, removed := range w.pending {
		if removed {
			batch.Removed = append(batch.Removed, path)
		} else {
			batch.Changed = append(batch.Changed, path)
		}
	}
	w.pending = make(map[string]bool)
	ctx := w.ctx
	w.mu.Unlock()

	if batch.Empty() || w.sink == nil {
		return
	}
	sort.Strings(batch.Changed)
	sort.Strings(batch.Removed)
	w.logger.Debug("watcher flushing batch", zap.Int("changed", len(batch.Changed)), zap.Int("removed", len(batch.Removed)))
	w.sink(ctx, batch)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// AddDirectory adds a root directory to watch. With syncExisting, files already in it are
// queued as one batch.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	w.logger.Info("watching directory", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		for _, p := range w.listFiles(abs) {
			w.enqueue(p, false)
		}
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

// listFiles returns the matching regular files under root, honoring recursive.
func (w *Watcher) listFiles(root string) []string {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	recursive := w.recursive
	w.mu.Unlock()

	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && matchExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// RemoveDirectory stops watching root. Documents already ingested from it stay in the corpus.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.rootPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("stopped watching directory", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles queues every matching file already present in the roots and flushes them
// as one batch. Call it after Start to ingest files that predate the watcher.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		for _, p := range w.listFiles(root) {
			w.enqueue(p, false)
		}
	}
	w.Flush()
}

// Stop stops the watcher and drops pending changes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]bool)
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
