// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package cache provides a thread-safe in-memory TTL cache for the read API.
// Snapshot and highlight responses change only when the control loop runs, so
// a short TTL absorbs most read traffic without staleness concerns.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

const cleanupInterval = time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache keyed by string. The zero value is not usable; use New.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a cache whose entries expire after ttl. A background goroutine
// sweeps expired entries until Close is called.
func New[V any](ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes a single key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush drops every entry. Called after operator-forced runs so reads see
// the new state immediately.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close stops the background sweeper.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[V]) sweep() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
