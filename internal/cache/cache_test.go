package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_WeightBudget(t *testing.T) {
	t.Run("documented example", func(t *testing.T) {
		c := New[string](18)

		c.Add(6, "A", "123")
		assert.Equal(t, int64(6), c.Weight())

		c.Add(12, "B", "123456")
		assert.Equal(t, int64(18), c.Weight())

		c.Add(4, "A", "ab")
		assert.Equal(t, int64(16), c.Weight(), "A is replaced, not duplicated")
		assert.Equal(t, []string{"B", "A"}, c.Keys(), "A moves to the newest position")

		value, ok := c.Get("A")
		require.True(t, ok)
		assert.Equal(t, "ab", value)

		_, ok = c.GetFresh("A", 0)
		assert.False(t, ok, "maxAge 0 must always miss")
	})

	t.Run("evicts oldest first", func(t *testing.T) {
		c := New[int](30)
		for i := 1; i <= 5; i++ {
			c.Add(6, fmt.Sprintf("key%d", i), i)
		}
		assert.Equal(t, int64(30), c.Weight())

		c.Add(6, "key6", 6)

		_, ok := c.Get("key1")
		assert.False(t, ok, "key1 should be evicted as oldest")
		for i := 2; i <= 6; i++ {
			_, ok := c.Get(fmt.Sprintf("key%d", i))
			assert.True(t, ok, "key%d should still be present", i)
		}
		assert.Equal(t, []string{"key2", "key3", "key4", "key5", "key6"}, c.Keys())
	})

	t.Run("reads do not refresh position", func(t *testing.T) {
		c := New[int](24)
		for i := 1; i <= 4; i++ {
			c.Add(6, fmt.Sprintf("key%d", i), i)
		}

		c.Get("key1")
		c.Add(6, "key5", 5)

		_, ok := c.Get("key1")
		assert.False(t, ok, "Get must not move key1 out of the eviction path")
		_, ok = c.Get("key2")
		assert.True(t, ok)
	})

	t.Run("re-adding moves key to newest", func(t *testing.T) {
		c := New[int](24)
		for i := 1; i <= 4; i++ {
			c.Add(6, fmt.Sprintf("key%d", i), i)
		}

		c.Add(6, "key1", 10)
		c.Add(6, "key5", 5)

		value, ok := c.Get("key1")
		require.True(t, ok)
		assert.Equal(t, 10, value)
		_, ok = c.Get("key2")
		assert.False(t, ok)
	})

	t.Run("oversized entry evicts itself", func(t *testing.T) {
		c := New[string](10)
		c.Add(4, "small", "s")
		c.Add(11, "huge", "h")

		_, ok := c.Get("huge")
		assert.False(t, ok)
		_, ok = c.Get("small")
		assert.False(t, ok, "everything older is evicted before the oversized entry")
		assert.Equal(t, int64(0), c.Weight())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("negative weight counts as zero", func(t *testing.T) {
		c := New[string](1)
		c.Add(-5, "k", "v")
		assert.Equal(t, int64(0), c.Weight())
		_, ok := c.Get("k")
		assert.True(t, ok)
	})

	t.Run("zero capacity retains only weightless entries", func(t *testing.T) {
		c := New[string](0)
		c.Add(1, "a", "a")
		c.Add(0, "b", "b")
		assert.Equal(t, []string{"b"}, c.Keys())
	})
}

func TestCache_Replace(t *testing.T) {
	clock := newFakeClock()
	c := New[string](100, WithClock(clock.Now))

	c.Add(10, "page", "v1")
	clock.Advance(time.Minute)
	c.Add(20, "page", "v2")

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(20), c.Weight())

	entry, ok := c.Lookup("page", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "v2", entry.Value)
	assert.Equal(t, clock.Now(), entry.Timestamp, "replacement refreshes the timestamp")
}

func TestCache_MaxAge(t *testing.T) {
	clock := newFakeClock()
	c := New[string](100, WithClock(clock.Now))
	c.Add(1, "k", "v")

	_, ok := c.GetFresh("k", time.Second)
	assert.True(t, ok)

	clock.Advance(999 * time.Millisecond)
	_, ok = c.GetFresh("k", time.Second)
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.GetFresh("k", time.Second)
	assert.False(t, ok, "an entry exactly maxAge old is stale")

	_, ok = c.GetFresh("k", -time.Second)
	assert.False(t, ok)

	value, ok := c.Get("k")
	assert.True(t, ok, "stale entries stay until evicted")
	assert.Equal(t, "v", value)
	assert.Equal(t, 1, c.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[int](100)
	c.Add(10, "a", 1)
	c.Add(10, "b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, int64(10), c.Weight())
	assert.Equal(t, []string{"b"}, c.Keys())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Weight())
	assert.Empty(t, c.Keys())

	c.Add(10, "c", 3)
	assert.Equal(t, []string{"c"}, c.Keys())
}

func TestCache_OnEvict(t *testing.T) {
	c := New[int](12)

	var evicted []string
	c.OnEvict(func(e Entry[int]) {
		evicted = append(evicted, e.Key)
	})

	c.Add(6, "a", 1)
	c.Add(6, "b", 2)
	c.Add(6, "a", 3) // replacement, not an eviction
	c.Add(6, "c", 4)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_Stats(t *testing.T) {
	c := New[int](100)
	c.Add(10, "a", 1)

	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.GetFresh("a", 0)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Adds)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(10), stats.Weight)
	assert.Equal(t, int64(100), stats.Capacity)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](500)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%64)
				c.Add(int64(i%17), key, i)
				c.Get(key)
				c.GetFresh(key, time.Minute)
				if i%50 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Weight(), c.Capacity())

	var sum int64
	for _, key := range c.Keys() {
		entry, ok := c.Lookup(key, time.Hour)
		require.True(t, ok)
		sum += entry.Weight
	}
	assert.Equal(t, c.Weight(), sum)
}
