// Package watch re-runs the discovery pipeline when source files in the
// target repository change, and optionally on a cron schedule.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeCallback is called with the batch of changed files after the
// debounce window closes.
type ChangeCallback func(changedFiles []string)

var skipDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	".hornet":       true,
	"node_modules":  true,
	"__pycache__":   true,
	"venv":          true,
	".venv":         true,
	"env":           true,
	"dist":          true,
	"build":         true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
}

// Watcher monitors a repository tree for changes to source files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback ChangeCallback
	logger   *zap.Logger
	root     string
	suffixes []string
	debounce time.Duration

	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewWatcher creates a watcher for source files under root. Only files
// whose name ends in one of suffixes trigger the callback.
func NewWatcher(root string, suffixes []string, callback ChangeCallback, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		watcher:  fsw,
		callback: callback,
		logger:   logger,
		root:     root,
		suffixes: suffixes,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]struct{}),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce sets the debounce duration for batching file changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (skipDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}()
}

// Stop stops watching for file changes
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need their own watch
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			base := filepath.Base(event.Name)
			if !skipDirs[base] && !strings.HasPrefix(base, ".") {
				w.addTree(event.Name)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, suf := range w.suffixes {
		if strings.HasSuffix(base, suf) {
			return true
		}
	}
	return false
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.callback == nil || len(pending) == 0 {
		return
	}

	files := make([]string, 0, len(pending))
	for f := range pending {
		files = append(files, f)
	}
	w.logger.Info("source changes detected", zap.Int("files", len(files)))
	w.callback(files)
}
