// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides a small generic LRU cache.
//
//	c := cache.New[string, *image.Alpha](64)
//	mask := c.GetOrCreate(label, func() *image.Alpha { return render(label) })
//
// Cache is safe for concurrent use.
package cache

import "sync"

// Cache is a thread-safe LRU cache holding at most limit entries.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	limit   int
	tick    uint64 // monotonic access counter
	hits    uint64
	misses  uint64
}

type entry[V any] struct {
	value V
	atime uint64
}

// Stats contains cache statistics.
type Stats struct {
	Len    int
	Limit  int
	Hits   uint64
	Misses uint64
}

// New creates a cache holding at most limit entries. A limit of 0 means
// unlimited.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*entry[V]), limit: limit}
}

// Get retrieves a value from the cache.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores a value, evicting the least recently used entry if the cache
// is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the cache lock, so it is called once per missing key.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		c.tick++
		e.atime = c.tick
		return e.value
	}
	c.misses++
	v := create()
	c.setLocked(key, v)
	return v
}

func (c *Cache[K, V]) setLocked(key K, value V) {
	c.tick++
	if e, ok := c.entries[key]; ok {
		e.value, e.atime = value, c.tick
		return
	}
	if c.limit > 0 && len(c.entries) >= c.limit {
		c.evictOldest()
	}
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
}

// evictOldest removes the least recently used entry. Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	var (
		oldest K
		atime  uint64
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.atime < atime {
			oldest, atime, found = k, e.atime, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.tick = 0
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Len: len(c.entries), Limit: c.limit, Hits: c.hits, Misses: c.misses}
}
