package render

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Fetch loads one piece of data for a render.
type Fetch func(ctx context.Context) (any, error)

type outcome struct {
	value any
	err   error
}

// session holds the data loaded for one Render call across its rounds.
type session struct {
	mu       sync.Mutex
	resolved map[string]outcome
	pending  map[string]Fetch
	order    []string
}

type sessionKey struct{}

func newSession() *session {
	return &session{
		resolved: make(map[string]outcome),
		pending:  make(map[string]Fetch),
	}
}

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

func (s *session) lookup(key string, fetch Fetch) (outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.resolved[key]; ok {
		return out, true
	}
	if _, queued := s.pending[key]; !queued {
		s.pending[key] = fetch
		s.order = append(s.order, key)
	}
	return outcome{}, false
}

// takePending returns the loaders queued during the last round in the order
// they were first requested, and clears the queue.
func (s *session) takePending() ([]string, map[string]Fetch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, pending := s.order, s.pending
	s.order = nil
	s.pending = make(map[string]Fetch)
	return keys, pending
}

func (s *session) resolve(key string, out outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved[key] = out
}

// state returns the successfully loaded values, for client hydration.
func (s *session) state() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := make(map[string]any, len(s.resolved))
	for key, out := range s.resolved {
		if out.err == nil {
			state[key] = out.value
		}
	}
	return state
}

func (s *session) failedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key, out := range s.resolved {
		if out.err != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Load returns the data stored under key for the current render.
//
// When the key has been resolved in an earlier round, Load returns its value
// (or the loader's error) with ready set. Otherwise it queues fetch for the
// next resolution pass and returns the zero value with ready unset; the
// caller should render a placeholder. Outside a render, fetch runs inline.
func Load[T any](ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (value T, ready bool, err error) {
	s := sessionFrom(ctx)
	if s == nil {
		value, err = fetch(ctx)
		return value, true, err
	}

	out, ok := s.lookup(key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if !ok {
		return value, false, nil
	}
	if out.err != nil {
		return value, true, out.err
	}

	typed, ok := out.value.(T)
	if !ok && out.value != nil {
		return value, true, fmt.Errorf("load %q: stored %T, want %T", key, out.value, value)
	}
	return typed, true, nil
}
