// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package cache

import (
	"fmt"
	"hash/maphash"
)

// FeatureCache is a sharded LRU cache mapping item keys to feature vectors.
// Keys are compared by value, so two equal items share a cached computation.
// It is safe for concurrent use.
type FeatureCache[K comparable] struct {
	shards []*lruShard[K]
	mask   uint64
	seed   maphash.Seed
}

// New creates a FeatureCache holding at most capacity entries spread over
// the given number of shards. Shards must be a power of two; capacity is
// divided evenly across shards, with a floor of one entry per shard.
func New[K comparable](capacity, shards int) (*FeatureCache[K], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if shards <= 0 || shards&(shards-1) != 0 {
		return nil, fmt.Errorf("cache shards must be a positive power of two, got %d", shards)
	}

	perShard := capacity / shards
	if perShard < 1 {
		perShard = 1
	}

	c := &FeatureCache[K]{
		shards: make([]*lruShard[K], shards),
		mask:   uint64(shards - 1),
		seed:   maphash.MakeSeed(),
	}
	for i := range c.shards {
		c.shards[i] = newLRUShard[K](perShard)
	}
	return c, nil
}

func (c *FeatureCache[K]) shard(key K) *lruShard[K] {
	return c.shards[maphash.Comparable(c.seed, key)&c.mask]
}

// Get returns a private copy of the cached feature vector for key.
// A miss has no side effects beyond the miss counter.
func (c *FeatureCache[K]) Get(key K) ([]float64, bool) {
	return c.shard(key).get(key)
}

// Add inserts or refreshes the cached vector for key. The vector is copied;
// the caller keeps ownership of its slice.
func (c *FeatureCache[K]) Add(key K, vec []float64) {
	c.shard(key).add(key, vec)
}

// Remove drops the entry for key. Returns true if it was present.
func (c *FeatureCache[K]) Remove(key K) bool {
	return c.shard(key).remove(key)
}

// Len returns the total number of cached entries.
func (c *FeatureCache[K]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.len()
	}
	return total
}

// Stats returns aggregated hit/miss counts across all shards.
func (c *FeatureCache[K]) Stats() (hits, misses int64) {
	for _, s := range c.shards {
		h, m := s.stats()
		hits += h
		misses += m
	}
	return hits, misses
}
