// Package watcher keeps the stores in step with watched directories using fsnotify.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives file changes. The ingester implements it.
type Sink interface {
	IngestFile(ctx context.Context, path string) (bool, error)
	DeleteSource(ctx context.Context, source string) error
}

// Watcher watches root directories and forwards debounced changes to a Sink.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	sink        Sink
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	ctx         context.Context
	mu          sync.Mutex
	pending     map[string]*time.Timer
	rootPaths   map[string][]string // root -> watched directories under it
	inflight    sync.WaitGroup
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
	onProcessed func(path string, removed bool)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce overrides the quiet period before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithProcessedHook registers fn to run after each file is ingested or removed.
func WithProcessedHook(fn func(path string, removed bool)) Option {
	return func(w *Watcher) { w.onProcessed = fn }
}

// New creates a watcher for cfg.Directories. Relative roots are made absolute.
func New(cfg config.WatchConfig, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		extensions: cfg.Extensions,
		recursive:  cfg.RecursiveOrDefault(),
		sink:       sink,
		debounce:   defaultDebounce,
		ctx:        context.Background(),
		pending:    make(map[string]*time.Timer),
		rootPaths:  make(map[string][]string),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, root := range cfg.Directories {
		if abs, err := filepath.Abs(root); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
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
	w.ctx = ctx
	w.started = true
	w.logger.Debug("Watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	for _, root := range w.roots {
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
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("Watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if matchExtension(path, w.extensions) {
			w.dispatch(path, true)
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	}
}

// handleNewDirectory watches a created or moved-in directory and ingests its files.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fw := w.watcher
	recursive := w.recursive
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if recursive {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if err := fw.Add(path); err != nil {
					w.logger.Debug("Failed to watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fw.Add(dir); err != nil {
		w.logger.Debug("Failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		if root == path || inDir(root, path) {
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

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.dispatch(path, false)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) dispatch(path string, removed bool) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	ctx := w.ctx
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if removed {
		if err := w.sink.DeleteSource(ctx, path); err != nil {
			w.logger.Warn("Failed to remove source", zap.String("path", path), zap.Error(err))
		} else {
			w.logger.Info("Removed source", zap.String("path", path))
		}
	} else {
		ok, err := w.sink.IngestFile(ctx, path)
		switch {
		case err != nil:
			w.logger.Warn("Failed to ingest file", zap.String("path", path), zap.Error(err))
		case ok:
			w.logger.Info("Ingested file", zap.String("path", path))
		}
	}
	if w.onProcessed != nil {
		w.onProcessed(path, removed)
	}
}

// AddDirectory watches root and, when syncExisting is set, ingests its current files in the
// background.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	if w.watcher != nil {
		if err := w.addRootLocked(abs); err != nil {
			return err
		}
	}
	w.roots = append(w.roots, abs)
	w.logger.Info("Watching directory", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.started {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
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

func (w *Watcher) syncDirectory(root string) {
	w.logger.Debug("Syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.dispatch(path, false)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Already ingested documents stay in the stores.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.watcher != nil {
		for _, p := range w.rootPaths[abs] {
			_ = w.watcher.Remove(p)
		}
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("Stopped watching directory", zap.String("path", abs))
	return nil
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests files already present under every root. Unchanged files are
// skipped by the sink.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops watching and waits for in-flight callbacks.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.inflight.Wait()
}
