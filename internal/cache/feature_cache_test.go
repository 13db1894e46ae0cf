// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestFeatureCacheBasicOperations(t *testing.T) {
	t.Parallel()

	c, err := New[string](16, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Add("a", []float64{1, 2})
	c.Add("b", []float64{3, 4})

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("Get(a) = %v, want [1 2]", got)
	}

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestFeatureCacheOverwrite(t *testing.T) {
	t.Parallel()

	c, _ := New[string](16, 1)
	c.Add("a", []float64{1})
	c.Add("a", []float64{9})

	got, ok := c.Get("a")
	if !ok || got[0] != 9 {
		t.Errorf("Get(a) = %v, %v; want [9], true", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 after overwrite", c.Len())
	}
}

func TestFeatureCacheEvictionOrder(t *testing.T) {
	t.Parallel()

	// Single shard so eviction order is deterministic.
	c, _ := New[string](3, 1)

	c.Add("a", []float64{1})
	c.Add("b", []float64{2})
	c.Add("c", []float64{3})

	// Touch "a" so "b" becomes the oldest.
	c.Get("a")

	c.Add("d", []float64{4})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as least recently used")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive eviction", key)
		}
	}

	// An evicted key stays absent until repopulated.
	c.Add("b", []float64{2})
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to be present after repopulation")
	}
}

func TestFeatureCacheCopyIsolation(t *testing.T) {
	t.Parallel()

	c, _ := New[string](16, 1)

	in := []float64{1, 2, 3}
	c.Add("a", in)

	// Mutating the caller's slice must not affect the cached vector.
	in[0] = 99
	got, _ := c.Get("a")
	if got[0] != 1 {
		t.Errorf("cached vector shares storage with caller input: %v", got)
	}

	// Mutating a returned slice must not affect the cached vector.
	got[1] = 99
	again, _ := c.Get("a")
	if again[1] != 2 {
		t.Errorf("cached vector shares storage with returned copy: %v", again)
	}
}

func TestFeatureCacheStats(t *testing.T) {
	t.Parallel()

	c, _ := New[string](16, 2)
	c.Add("a", []float64{1})
	c.Get("a")
	c.Get("a")
	c.Get("nope")

	hits, misses := c.Stats()
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}

func TestFeatureCacheRemove(t *testing.T) {
	t.Parallel()

	c, _ := New[int64](16, 4)
	c.Add(7, []float64{1})

	if !c.Remove(7) {
		t.Error("Remove(7) = false, want true")
	}
	if c.Remove(7) {
		t.Error("second Remove(7) = true, want false")
	}
	if _, ok := c.Get(7); ok {
		t.Error("expected miss after removal")
	}
}

func TestFeatureCacheRejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := New[string](0, 4); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, err := New[string](16, 3); err == nil {
		t.Error("expected error for non power-of-two shards")
	}
	if _, err := New[string](16, 0); err == nil {
		t.Error("expected error for zero shards")
	}
}

func TestFeatureCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c, _ := New[string](1024, 16)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("item-%d-%d", w, i%50)
				c.Add(key, []float64{float64(i), float64(w)})
				if vec, ok := c.Get(key); ok && len(vec) != 2 {
					t.Errorf("unexpected vector length %d", len(vec))
				}
			}
		}(w)
	}
	wg.Wait()

	if c.Len() > 1024 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}
