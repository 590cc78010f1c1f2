// Package cache provides a bounded concurrent map that evicts in insertion
// order. It backs the analyzer's position cache.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultCapacity is the number of entries kept after compaction.
const DefaultCapacity = 50000

// Number of shards for locking (power of 2 for fast modulo)
const shardCount = 256
const shardMask = shardCount - 1

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// Cache is a string-keyed concurrent map. The first Put for a key wins.
// Capacity is a soft bound: Put never blocks or evicts, Compact trims the
// oldest entries once the map has grown past capacity.
type Cache[V any] struct {
	shards   [shardCount]shard[V]
	capacity int
	size     atomic.Int64

	// Insertion order. head indexes the oldest live slot.
	orderMu sync.Mutex
	order   []string
	head    int

	compactMu sync.Mutex
	// Put holds resetMu shared; Clear holds it exclusively so the shards,
	// size and order are reset together.
	resetMu sync.RWMutex

	// Statistics (atomic for thread-safety)
	hits    atomic.Uint64
	probes  atomic.Uint64
	evicted atomic.Uint64
}

// New creates a cache. A non-positive capacity selects DefaultCapacity.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{capacity: capacity}
	for i := range c.shards {
		c.shards[i].m = make(map[string]V)
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	return &c.shards[xxhash.Sum64String(key)&shardMask]
}

// Get looks up a key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.probes.Add(1)
	s := c.shardFor(key)
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	}
	return v, ok
}

// Put stores v under key unless the key is already present. It reports
// whether v was inserted.
func (c *Cache[V]) Put(key string, v V) bool {
	c.resetMu.RLock()
	defer c.resetMu.RUnlock()

	s := c.shardFor(key)
	s.mu.Lock()
	if _, ok := s.m[key]; ok {
		s.mu.Unlock()
		return false
	}
	s.m[key] = v
	s.mu.Unlock()

	c.size.Add(1)
	c.orderMu.Lock()
	c.order = append(c.order, key)
	c.orderMu.Unlock()
	return true
}

// popOldest removes the oldest key from the insertion queue.
func (c *Cache[V]) popOldest() (string, bool) {
	c.orderMu.Lock()
	defer c.orderMu.Unlock()
	if c.head >= len(c.order) {
		return "", false
	}
	key := c.order[c.head]
	c.order[c.head] = ""
	c.head++
	// Reclaim the consumed prefix once it dominates the slice.
	if c.head > 1024 && c.head*2 > len(c.order) {
		c.order = append([]string(nil), c.order[c.head:]...)
		c.head = 0
	}
	return key, true
}

// Compact evicts the oldest entries when the cache holds more than its
// capacity, until it holds less than 95% of it. Concurrent Gets and Puts
// may proceed while it runs; concurrent Compacts are serialized. It returns
// the number of evicted entries.
func (c *Cache[V]) Compact() int {
	c.compactMu.Lock()
	defer c.compactMu.Unlock()

	if c.size.Load() <= int64(c.capacity) {
		return 0
	}
	target := int64(c.capacity) * 95 / 100

	removed := 0
	for c.size.Load() >= target {
		key, ok := c.popOldest()
		if !ok {
			break
		}
		s := c.shardFor(key)
		s.mu.Lock()
		_, present := s.m[key]
		delete(s.m, key)
		s.mu.Unlock()
		if present {
			c.size.Add(-1)
			removed++
		}
	}
	c.evicted.Add(uint64(removed))
	return removed
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	return int(c.size.Load())
}

// Capacity returns the configured capacity.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Clear removes every entry and resets statistics. It waits for Puts in
// progress and is safe to call during a search.
func (c *Cache[V]) Clear() {
	c.compactMu.Lock()
	defer c.compactMu.Unlock()
	c.resetMu.Lock()
	defer c.resetMu.Unlock()

	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.m = make(map[string]V)
		s.mu.Unlock()
	}
	c.orderMu.Lock()
	c.order = nil
	c.head = 0
	c.orderMu.Unlock()

	c.size.Store(0)
	c.hits.Store(0)
	c.probes.Store(0)
	c.evicted.Store(0)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len     int
	Hits    uint64
	Probes  uint64
	Evicted uint64
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:     c.Len(),
		Hits:    c.hits.Load(),
		Probes:  c.probes.Load(),
		Evicted: c.evicted.Load(),
	}
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cache[V]) HitRate() float64 {
	probes := c.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(probes) * 100
}
