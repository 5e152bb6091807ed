// Package watch recompiles units when their syntax-tree files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/jsxl/pkg/jsxl/driver"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Match selects the files that trigger OnChange. Nil uses IsUnit.
	Match  func(path string) bool
	Logger driver.Logger
}

// Watcher monitors directories and calls OnChange once per burst of writes
// to a matching file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	opts     Options
	onChange func(ctx context.Context, path string)
	log      driver.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// IsUnit reports whether path looks like an ESTree input rather than an
// artifact jsxl writes itself.
func IsUnit(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ".json" {
		return false
	}
	return !strings.HasSuffix(base, ".exports.json") && !strings.HasSuffix(base, ".formulas.json")
}

// New creates a watcher over dirs and their subdirectories. Events are
// buffered by fsnotify until Run is called.
func New(dirs []string, opts Options, onChange func(ctx context.Context, path string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Match == nil {
		opts.Match = IsUnit
	}
	log := opts.Logger
	if log == nil {
		log = driver.NullLogger()
	}

	w := &Watcher{
		watcher:  fsWatcher,
		opts:     opts,
		onChange: onChange,
		log:      log,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 16),
	}
	for _, dir := range dirs {
		if err := w.watchDirRecursive(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		log.Infof("watching %s", dir)
	}
	return w, nil
}

// Run watches until ctx is cancelled. OnChange runs on the calling
// goroutine, one change at a time.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-w.ready:
			w.log.Infof("changed: %s", path)
			w.onChange(ctx, path)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Only handle write and create events
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDirRecursive(event.Name); err != nil {
				w.log.Errorf("failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if !w.opts.Match(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule (re)starts path's debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip errors below the root
		}
		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}
