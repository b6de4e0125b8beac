// Package devreload watches source files in development mode and tells
// connected browsers to reload when they change.
package devreload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/isorender/internal/logging"
)

// Op is the kind of file change.
type Op int

const (
	OpCreated Op = iota
	OpModified
	OpRemoved
	OpRenamed
)

// String returns the string representation of the Op.
func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpRemoved:
		return "removed"
	case OpRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Change is a single debounced file change.
type Change struct {
	Op      Op
	Path    string
	ModTime time.Time
}

// Filter reports whether a path is relevant.
type Filter func(path string) bool

// Handler receives a batch of changes, deduplicated by path and sorted.
type Handler func(ctx context.Context, changes []Change) error

// Watcher groups fsnotify events into debounced batches.
type Watcher struct {
	fs       *fsnotify.Watcher
	delay    time.Duration
	logger   logging.Logger
	mu       sync.RWMutex
	filters  []Filter
	handlers []Handler
}

// NewWatcher creates a watcher that waits delay after the last event before
// delivering a batch.
func NewWatcher(delay time.Duration, logger logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Watcher{
		fs:     fsw,
		delay:  delay,
		logger: logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter. A path must pass every filter.
func (w *Watcher) AddFilter(filter Filter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filters = append(w.filters, filter)
}

// OnChange adds a handler.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// AddRecursive watches root and every directory below it, skipping
// directories excluded by SkipDirs.
func (w *Watcher) AddRecursive(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.fs.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !SkipDirs(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers batches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		pending = make(map[string]Change)
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			change, keep := w.convert(event)
			if !keep {
				continue
			}
			pending[change.Path] = change
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, err, "File watcher error")

		case <-fire:
			fire = nil
			batch := drain(pending)
			pending = make(map[string]Change)
			w.dispatch(ctx, batch)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) convert(event fsnotify.Event) (Change, bool) {
	w.mu.RLock()
	filters := w.filters
	w.mu.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return Change{}, false
		}
	}

	change := Change{Path: event.Name}
	switch {
	case event.Has(fsnotify.Create):
		change.Op = OpCreated
	case event.Has(fsnotify.Write):
		change.Op = OpModified
	case event.Has(fsnotify.Remove):
		change.Op = OpRemoved
	case event.Has(fsnotify.Rename):
		change.Op = OpRenamed
	case event.Has(fsnotify.Chmod):
		return Change{}, false
	default:
		change.Op = OpModified
	}

	if info, err := os.Stat(event.Name); err == nil {
		change.ModTime = info.ModTime()
		// New directories are watched as they appear.
		if change.Op == OpCreated && info.IsDir() && SkipDirs(event.Name) {
			if err := w.fs.Add(event.Name); err != nil {
				w.logger.Warn(context.Background(), err, "Could not watch new directory", "path", event.Name)
			}
		}
	}
	return change, true
}

func (w *Watcher) dispatch(ctx context.Context, batch []Change) {
	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, batch); err != nil {
			w.logger.Error(ctx, err, "Change handler failed", "changes", len(batch))
		}
	}
}

func drain(pending map[string]Change) []Change {
	batch := make([]Change, 0, len(pending))
	for _, change := range pending {
		batch = append(batch, change)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

// Extensions keeps files with one of the given extensions.
func Extensions(exts ...string) Filter {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, want := range exts {
			if ext == want {
				return true
			}
		}
		return false
	}
}

// NoTests drops Go and templ test files.
func NoTests(path string) bool {
	base := filepath.Base(path)
	return !strings.HasSuffix(base, "_test.go") && !strings.HasSuffix(base, "_test.templ")
}

var skippedDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"_examples":    true,
}

// SkipDirs drops paths inside version control, vendored or generated
// dependency directories.
func SkipDirs(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if skippedDirs[part] {
			return false
		}
	}
	return true
}
