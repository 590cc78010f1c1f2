package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestFirstWriterWins(t *testing.T) {
	c := New[int](10)

	if !c.Put("a", 1) {
		t.Fatal("first Put should insert")
	}
	if c.Put("a", 2) {
		t.Error("second Put should not insert")
	}
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
	t.Logf("hit rate %.1f%%", c.HitRate())
}

func TestCompactEvictsOldestFirst(t *testing.T) {
	c := New[int](100)
	for i := 0; i < 150; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}

	removed := c.Compact()
	if c.Len() >= 95 {
		t.Errorf("Len after compact = %d, want < 95", c.Len())
	}
	if removed != 150-c.Len() {
		t.Errorf("removed %d, Len %d", removed, c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("k149"); !ok {
		t.Error("newest entry should survive")
	}

	// Oldest survivor is the first key after the evicted prefix.
	if _, ok := c.Get(fmt.Sprintf("k%d", removed)); !ok {
		t.Errorf("k%d should be the oldest survivor", removed)
	}
	if _, ok := c.Get(fmt.Sprintf("k%d", removed-1)); ok {
		t.Errorf("k%d should have been evicted", removed-1)
	}
}

func TestCompactBelowCapacityIsNoop(t *testing.T) {
	c := New[int](100)
	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	if n := c.Compact(); n != 0 {
		t.Errorf("Compact removed %d entries at capacity", n)
	}
	if c.Len() != 100 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestDefaultCapacity(t *testing.T) {
	if c := New[int](0); c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](500)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := fmt.Sprintf("k%d", (i*7+w)%1500)
				if v, ok := c.Get(key); ok && v < 0 {
					t.Errorf("corrupt value %d", v)
				}
				c.Put(key, i)
				if i%250 == 0 {
					c.Compact()
				}
			}
		}(w)
	}
	wg.Wait()

	c.Compact()
	if c.Len() > c.Capacity() {
		t.Errorf("Len %d exceeds capacity after compact", c.Len())
	}

	// Every counted entry must be reachable.
	count := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		count += len(c.shards[i].m)
		c.shards[i].mu.RUnlock()
	}
	if count != c.Len() {
		t.Errorf("shard entries %d != Len %d", count, c.Len())
	}
}

func TestClear(t *testing.T) {
	c := New[string](10)
	c.Put("a", "x")
	c.Get("a")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
	if st := c.Stats(); st.Hits != 0 || st.Probes != 0 {
		t.Errorf("stats not reset: %+v", st)
	}
	if !c.Put("a", "y") {
		t.Error("Put after Clear should insert")
	}
}

func TestClearDuringPuts(t *testing.T) {
	c := New[int](100)
	var wg sync.WaitGroup

	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				c.Put(fmt.Sprintf("k%d-%d", w, i), i)
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Clear()
		}
	}()
	wg.Wait()

	count := 0
	for i := range c.shards {
		count += len(c.shards[i].m)
	}
	queued := len(c.order) - c.head
	if count != c.Len() || queued != c.Len() {
		t.Fatalf("entries %d, queued %d, Len %d", count, queued, c.Len())
	}

	c.Compact()
	if c.Len() > c.Capacity() {
		t.Errorf("Len %d after compact, capacity %d", c.Len(), c.Capacity())
	}
	t.Logf("%d entries survived the clears", count)
}
