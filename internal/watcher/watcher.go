// Package watcher re-indexes files as they appear or change in a watched
// directory tree.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Indexer indexes a single file. Satisfied by pipeline.Pipeline.
type Indexer interface {
	IndexFile(ctx context.Context, path string) error
}

// Watcher watches a directory tree and feeds created or modified files to an
// Indexer after a debounce window, so editors that write in several bursts
// trigger one indexing pass.
type Watcher struct {
	indexer      Indexer
	debounce     time.Duration
	extensions   []string
	ignoreHidden bool
	logger       *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions restricts watching to the given file extensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithIgnoreHidden skips dotfiles and dot-directories.
func WithIgnoreHidden(ignore bool) Option {
	return func(w *Watcher) { w.ignoreHidden = ignore }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher feeding the given indexer.
func New(indexer Indexer, opts ...Option) *Watcher {
	w := &Watcher{
		indexer:    indexer,
		debounce:   500 * time.Millisecond,
		extensions: []string{".txt"},
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks watching dir and its subdirectories until ctx is canceled.
// New subdirectories are picked up as they are created.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, dir); err != nil {
		return err
	}
	w.logger.Info("watching directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if w.ignoreHidden && isHidden(event.Name) {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fsw, event.Name); err != nil {
				w.logger.Error("watch new directory failed",
					zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.extensionAllowed(filepath.Ext(event.Name)) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.logger.Info("indexing changed file", zap.String("path", path))
		if err := w.indexer.IndexFile(ctx, path); err != nil {
			w.logger.Error("re-index failed", zap.String("path", path), zap.Error(err))
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoreHidden && path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) extensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range w.extensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
