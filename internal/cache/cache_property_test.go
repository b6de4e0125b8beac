//go:build property

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// model is a naive reference: a slice ordered oldest first.
type model struct {
	capacity int64
	entries  []Entry[int]
}

func (m *model) add(weight int64, key string, value int) {
	for i, e := range m.entries {
		if e.Key == key {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.entries = append(m.entries, Entry[int]{Key: key, Value: value, Weight: weight})
	for m.total() > m.capacity && len(m.entries) > 0 {
		m.entries = m.entries[1:]
	}
}

func (m *model) total() int64 {
	var sum int64
	for _, e := range m.entries {
		sum += e.Weight
	}
	return sum
}

func (m *model) keys() []string {
	keys := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func applyOps(capacity int64, weights, keys []int) (*Cache[int], *model) {
	c := New[int](capacity)
	m := &model{capacity: capacity}
	for i, w := range weights {
		if i >= len(keys) {
			break
		}
		key := fmt.Sprintf("k%d", keys[i])
		c.Add(int64(w), key, i)
		m.add(int64(w), key, i)
	}
	return c, m
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCacheProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("weight never exceeds capacity", prop.ForAll(
		func(capacity int, weights, keys []int) bool {
			c := New[int](int64(capacity))
			for i, w := range weights {
				if i >= len(keys) {
					break
				}
				c.Add(int64(w), fmt.Sprintf("k%d", keys[i]), i)
				if c.Weight() > c.Capacity() {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 64),
		gen.SliceOf(gen.IntRange(0, 24)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("keys are unique and weights add up", prop.ForAll(
		func(weights, keys []int) bool {
			c, _ := applyOps(40, weights, keys)
			seen := make(map[string]bool)
			var sum int64
			for _, key := range c.Keys() {
				if seen[key] {
					return false
				}
				seen[key] = true
				entry, ok := c.Lookup(key, time.Hour)
				if !ok {
					return false
				}
				sum += entry.Weight
			}
			return sum == c.Weight() && len(seen) == c.Len()
		},
		gen.SliceOf(gen.IntRange(0, 24)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("eviction order matches oldest-touched-first model", prop.ForAll(
		func(weights, keys []int) bool {
			c, m := applyOps(40, weights, keys)
			return sameKeys(c.Keys(), m.keys())
		},
		gen.SliceOf(gen.IntRange(0, 24)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("get returns the latest value for retained keys", prop.ForAll(
		func(weights, keys []int) bool {
			c, m := applyOps(40, weights, keys)
			for _, e := range m.entries {
				value, ok := c.Get(e.Key)
				if !ok || value != e.Value {
					return false
				}
			}
			for k := 0; k <= 9; k++ {
				key := fmt.Sprintf("k%d", k)
				retained := false
				for _, e := range m.entries {
					if e.Key == key {
						retained = true
					}
				}
				if _, ok := c.Get(key); ok != retained {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 24)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("zero max age always misses", prop.ForAll(
		func(weights, keys []int) bool {
			c, _ := applyOps(40, weights, keys)
			for _, key := range c.Keys() {
				if _, ok := c.GetFresh(key, 0); ok {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 24)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}
