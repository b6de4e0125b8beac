package devreload

import (
	"context"
	"fmt"

	"github.com/conneroisu/isorender/internal/config"
	"github.com/conneroisu/isorender/internal/logging"
)

// Clearer is implemented by caches that must be dropped when sources change.
type Clearer interface {
	Clear()
}

// ClearFunc adapts a function to Clearer.
type ClearFunc func()

// Clear calls f.
func (f ClearFunc) Clear() { f() }

// Reloader clears the response cache and notifies browsers after each
// batch of source changes.
type Reloader struct {
	watcher *Watcher
	hub     *Hub
	cache   Clearer
	logger  logging.Logger
}

// NewReloader watches cfg.WatchPaths. cache may be nil.
func NewReloader(cfg config.DevelopmentConfig, hub *Hub, cache Clearer, logger logging.Logger) (*Reloader, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	w, err := NewWatcher(cfg.Debounce, logger)
	if err != nil {
		return nil, err
	}
	w.AddFilter(SkipDirs)
	w.AddFilter(NoTests)

	for _, path := range cfg.WatchPaths {
		if err := w.AddRecursive(path); err != nil {
			w.Close()
			return nil, fmt.Errorf("watching %s: %w", path, err)
		}
	}

	r := &Reloader{
		watcher: w,
		hub:     hub,
		cache:   cache,
		logger:  logger.WithComponent("devreload"),
	}
	w.OnChange(r.handle)
	return r, nil
}

// Run blocks until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()
	return r.watcher.Run(ctx)
}

func (r *Reloader) handle(ctx context.Context, changes []Change) error {
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}

	if r.cache != nil {
		r.cache.Clear()
	}
	r.logger.Info(ctx, "Sources changed, reloading clients", "paths", paths)

	return r.hub.Broadcast(ctx, Message{Type: "reload", Paths: paths})
}
