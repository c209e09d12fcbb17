// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package cache

import (
	"sync"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	c.Set("a", 42)
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Errorf("Get(a) = (%d, %v), want (42, true)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) returned a value")
	}
}

func TestEntriesExpire(t *testing.T) {
	c := New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry still served")
	}
}

func TestFlushDropsEverything(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()

	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Flush")
	}
}

func TestDelete(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Delete")
	}
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (2, 1)", hits, misses)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n)
				c.Get("shared")
			}
		}(i)
	}
	wg.Wait()

	if _, ok := c.Get("shared"); !ok {
		t.Error("shared key missing after concurrent writes")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	c := New[int](5 * time.Millisecond)
	defer c.Close()

	c.Set("old", 1)
	time.Sleep(10 * time.Millisecond)
	c.sweep()

	c.mu.RLock()
	_, ok := c.entries["old"]
	c.mu.RUnlock()
	if ok {
		t.Error("sweep left expired entry in map")
	}
}
