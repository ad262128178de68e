// SPDX-License-Identifier: MIT

// Package cache provides a small in-memory LRU cache with counters.
package cache

import (
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64 // entries dropped to stay within capacity
	CurrentSize int
}

// LRU is a fixed-capacity cache that evicts the least recently used entry.
// It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	capacity int
	lru      *lru.Cache[K, V]

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// NewLRU returns a cache holding at most capacity entries. A capacity below
// one is treated as one.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	l, err := lru.New[K, V](capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &LRU[K, V]{capacity: capacity, lru: l}
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int { return c.capacity }

// Get returns the cached value and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Set(key K, value V) {
	c.sets.Add(1)
	if c.lru.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Delete removes key from the cache.
func (c *LRU[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Clear removes all entries.
func (c *LRU[K, V]) Clear() {
	c.lru.Purge()
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	keys := c.lru.Keys()
	slices.Reverse(keys)
	return keys
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: c.lru.Len(),
	}
}
