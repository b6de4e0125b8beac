// Package cache provides a bounded, byte-weighted cache with per-read max-age
// checks and least-recently-used eviction on write.
//
// The cache is bounded by the total weight of its entries rather than by
// entry count. Every Add moves the key to the most recently used position and
// then evicts from the least recently used end until the total weight fits in
// the configured capacity. An entry heavier than the whole capacity is evicted
// immediately after it is inserted.
//
// Reads never reorder or evict. Get ignores age; GetFresh treats entries whose
// age is not strictly below maxAge as absent, so a maxAge of zero always
// misses.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a snapshot of a cached value.
type Entry[T any] struct {
	Key       string
	Value     T
	Weight    int64
	Timestamp time.Time
}

// Age returns how old the entry is relative to now.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// node is a list element; the list is doubly linked with sentinels.
type node[T any] struct {
	Entry[T]
	prev *node[T]
	next *node[T]
}

// EvictFunc is called for every entry removed to satisfy the capacity.
type EvictFunc[T any] func(entry Entry[T])

// Cache maps string keys to values of type T.
//
// Cache is safe for concurrent use.
type Cache[T any] struct {
	mu       sync.RWMutex
	entries  map[string]*node[T]
	capacity int64
	weight   int64
	now      func() time.Time
	onEvict  EvictFunc[T]

	// head.next is the most recently added entry, tail.prev the oldest.
	head *node[T]
	tail *node[T]

	hits      int64
	misses    int64
	adds      int64
	evictions int64
}

// Option configures a cache.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock overrides the time source used to stamp and age entries.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a cache holding at most capacity bytes of weighted entries.
// A non-positive capacity yields a cache that retains nothing.
func New[T any](capacity int64, opts ...Option) *Cache[T] {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	if capacity < 0 {
		capacity = 0
	}

	c := &Cache[T]{
		entries:  make(map[string]*node[T]),
		capacity: capacity,
		now:      s.now,
		head:     &node[T]{},
		tail:     &node[T]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// OnEvict registers fn to be called, outside the cache lock, for each entry
// evicted by weight. Replacing a key or calling Delete or Clear does not
// count as an eviction.
func (c *Cache[T]) OnEvict(fn EvictFunc[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Add inserts or replaces the value stored under key with the given weight
// in bytes, then evicts the oldest entries while the total weight exceeds the
// capacity. Negative weights count as zero.
func (c *Cache[T]) Add(weight int64, key string, value T) {
	if weight < 0 {
		weight = 0
	}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		c.unlink(existing)
		delete(c.entries, key)
		c.weight -= existing.Weight
	}

	n := &node[T]{Entry: Entry[T]{
		Key:       key,
		Value:     value,
		Weight:    weight,
		Timestamp: c.now(),
	}}
	c.entries[key] = n
	c.pushFront(n)
	c.weight += weight

	evicted := c.evictLocked()
	onEvict := c.onEvict
	c.mu.Unlock()

	atomic.AddInt64(&c.adds, 1)
	atomic.AddInt64(&c.evictions, int64(len(evicted)))
	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e)
		}
	}
}

// evictLocked removes entries from the oldest end until the weight fits.
func (c *Cache[T]) evictLocked() []Entry[T] {
	var evicted []Entry[T]
	for c.weight > c.capacity && c.tail.prev != c.head {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.entries, oldest.Key)
		c.weight -= oldest.Weight
		evicted = append(evicted, oldest.Entry)
	}
	return evicted
}

// Get returns the value stored under key regardless of its age.
func (c *Cache[T]) Get(key string) (T, bool) {
	entry, ok := c.lookup(key, 0, false)
	return entry.Value, ok
}

// GetFresh returns the value stored under key if its age is strictly less
// than maxAge. A maxAge of zero or less always misses.
func (c *Cache[T]) GetFresh(key string, maxAge time.Duration) (T, bool) {
	entry, ok := c.lookup(key, maxAge, true)
	return entry.Value, ok
}

// Lookup is GetFresh returning the whole entry, for callers that need the
// weight or timestamp alongside the value.
func (c *Cache[T]) Lookup(key string, maxAge time.Duration) (Entry[T], bool) {
	return c.lookup(key, maxAge, true)
}

func (c *Cache[T]) lookup(key string, maxAge time.Duration, bounded bool) (Entry[T], bool) {
	c.mu.RLock()
	n, ok := c.entries[key]
	var entry Entry[T]
	if ok {
		entry = n.Entry
	}
	c.mu.RUnlock()

	if ok && bounded && entry.Age(c.now()) >= maxAge {
		ok = false
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return Entry[T]{}, false
	}

	atomic.AddInt64(&c.hits, 1)
	return entry, true
}

// Delete removes key and reports whether it was present.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.entries, key)
	c.weight -= n.Weight
	return true
}

// Clear removes every entry. Statistics are kept.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*node[T])
	c.weight = 0
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Weight returns the summed weight of all entries in bytes.
func (c *Cache[T]) Weight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weight
}

// Capacity returns the weight budget in bytes.
func (c *Cache[T]) Capacity() int64 {
	return c.capacity
}

// Keys returns the keys in eviction order, oldest first.
func (c *Cache[T]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for n := c.tail.prev; n != c.head; n = n.prev {
		keys = append(keys, n.Key)
	}
	return keys
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Adds      int64   `json:"adds"`
	Evictions int64   `json:"evictions"`
	Entries   int     `json:"entries"`
	Weight    int64   `json:"weight_bytes"`
	Capacity  int64   `json:"capacity_bytes"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns the current counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	entries, weight := len(c.entries), c.weight
	c.mu.RUnlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:      hits,
		Misses:    misses,
		Adds:      atomic.LoadInt64(&c.adds),
		Evictions: atomic.LoadInt64(&c.evictions),
		Entries:   entries,
		Weight:    weight,
		Capacity:  c.capacity,
		HitRate:   rate,
	}
}

func (c *Cache[T]) pushFront(n *node[T]) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache[T]) unlink(n *node[T]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}
