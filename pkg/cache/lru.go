// Package cache provides a memory-bounded, size-aware LRU cache used to
// reuse inference results for segments that were already analyzed.
package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxSize is the default memory budget of an LRU (64 MB).
const DefaultMaxSize = 64 * 1024 * 1024

// bytesPerKB normalizes entry sizes when ranking eviction candidates.
const bytesPerKB = 1024.0

// evictionSampleSize is the number of entries sampled from the LRU tail when
// picking a victim.
const evictionSampleSize = 5

// SizeFunc estimates the memory footprint of a value in bytes.
type SizeFunc[V any] func(V) int64

// LRU is a string-keyed cache bounded by the summed size of its values.
// Among the least recently used entries, large rarely-read values go first.
type LRU[V any] struct {
	mu          sync.Mutex
	entries     map[string]*lruEntry[V]
	head        *lruEntry[V] // most recently used
	tail        *lruEntry[V] // least recently used
	sizeOf      SizeFunc[V]
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry[V any] struct {
	key         string
	value       V
	size        int64
	accessCount int64
	prev        *lruEntry[V]
	next        *lruEntry[V]
}

// evictionCost is higher for entries worth keeping: often read and small.
func (e *lruEntry[V]) evictionCost() float64 {
	sizeKB := max(float64(e.size)/bytesPerKB, 1)

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache holding at most maxSize bytes as measured by sizeOf.
// A non-positive maxSize selects DefaultMaxSize.
func NewLRU[V any](maxSize int64, sizeOf SizeFunc[V]) *LRU[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &LRU[V]{
		entries: make(map[string]*lruEntry[V]),
		sizeOf:  sizeOf,
		maxSize: maxSize,
	}
}

// Get returns the cached value for key.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, evicting entries until it fits. Values larger
// than the whole cache are not stored. Putting an existing key replaces its value.
func (c *LRU[V]) Put(key string, value V) {
	size := c.sizeOf(value)
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.currentSize += size - entry.size
		entry.value = value
		entry.size = size
		entry.accessCount++
		c.moveToFront(entry)

		for c.currentSize > c.maxSize && c.tail != nil && c.tail != entry {
			c.evictLowestCost(entry)
		}

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost(nil)
	}

	entry := &lruEntry[V]{
		key:         key,
		value:       value,
		size:        size,
		accessCount: 1,
	}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns a snapshot of cache statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[V]) removeFromList(entry *lruEntry[V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictLowestCost removes the cheapest of up to evictionSampleSize entries
// from the tail, never touching keep.
func (c *LRU[V]) evictLowestCost(keep *lruEntry[V]) {
	var victim *lruEntry[V]

	sampled := 0
	for entry := c.tail; entry != nil && sampled < evictionSampleSize; entry = entry.prev {
		if entry == keep {
			continue
		}

		sampled++

		if victim == nil || entry.evictionCost() < victim.evictionCost() {
			victim = entry
		}
	}

	if victim == nil {
		return
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
