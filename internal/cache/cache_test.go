// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"sync"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("a"); ok {
		t.Error("Get() on empty cache found a value")
	}
	c.Set("a", 1)
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v, want 2, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](3)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	c.Get(1) // 2 is now the oldest
	c.Set(4, 4)

	if _, ok := c.Get(2); ok {
		t.Error("least recently used entry survived")
	}
	for _, k := range []int{1, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %d evicted", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestCache_GetOrCreate(t *testing.T) {
	c := New[string, int](8)
	calls := 0
	create := func() int { calls++; return 7 }

	for range 3 {
		if v := c.GetOrCreate("k", create); v != 7 {
			t.Errorf("GetOrCreate() = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Len != 1 || s.Limit != 8 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[int, int](0)
	c.Set(1, 1)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](16)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := (g*31 + i) % 40
				c.GetOrCreate(k, func() int { return k })
				if v, ok := c.Get(k); ok && v != k {
					t.Errorf("Get(%d) = %d", k, v)
					return
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len() = %d, want <= 16", c.Len())
	}
}
