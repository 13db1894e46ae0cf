// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package cache provides the bounded per-model feature vector cache.
//
// The cache maps an item key to its previously computed feature vector so
// repeated scoring of the same item skips feature extraction. Entries are
// evicted least-recently-used first once the configured capacity is reached.
//
// The cache is sharded: each shard is an independent LRU protected by its
// own mutex, so lookups for unrelated items do not contend on a single lock.
// Vectors are copied on the way in and on the way out; callers can never
// mutate a cached vector through a returned slice.
package cache

import (
	"sync"
)

// lruEntry is a node in a shard's doubly-linked recency list.
type lruEntry[K comparable] struct {
	key   K
	value []float64
	prev  *lruEntry[K]
	next  *lruEntry[K]
}

// lruShard is a single LRU segment. All operations are O(1).
//
// This uses a doubly-linked list with sentinel head/tail nodes and a map for
// lookup: head.next is the most recently used entry, tail.prev the least.
type lruShard[K comparable] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*lruEntry[K]
	head     *lruEntry[K]
	tail     *lruEntry[K]

	hits   int64
	misses int64
}

func newLRUShard[K comparable](capacity int) *lruShard[K] {
	s := &lruShard[K]{
		capacity: capacity,
		items:    make(map[K]*lruEntry[K], capacity),
		head:     &lruEntry[K]{},
		tail:     &lruEntry[K]{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// get returns a private copy of the cached vector and refreshes recency.
func (s *lruShard[K]) get(key K) ([]float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		s.misses++
		return nil, false
	}

	s.moveToFront(entry)
	s.hits++

	out := make([]float64, len(entry.value))
	copy(out, entry.value)
	return out, true
}

// add inserts or refreshes an entry, evicting the least recently used
// entries once the shard exceeds its capacity.
func (s *lruShard[K]) add(key K, vec []float64) {
	stored := make([]float64, len(vec))
	copy(stored, vec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.items[key]; ok {
		entry.value = stored
		s.moveToFront(entry)
		return
	}

	entry := &lruEntry[K]{key: key, value: stored}
	s.addToFront(entry)
	s.items[key] = entry

	for len(s.items) > s.capacity {
		s.evictOldest()
	}
}

func (s *lruShard[K]) remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeEntry(entry)
	return true
}

func (s *lruShard[K]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *lruShard[K]) stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// Internal list operations. Must be called with the shard lock held.

func (s *lruShard[K]) addToFront(entry *lruEntry[K]) {
	entry.prev = s.head
	entry.next = s.head.next
	s.head.next.prev = entry
	s.head.next = entry
}

func (s *lruShard[K]) moveToFront(entry *lruEntry[K]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	s.addToFront(entry)
}

func (s *lruShard[K]) removeEntry(entry *lruEntry[K]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(s.items, entry.key)
}

func (s *lruShard[K]) evictOldest() {
	oldest := s.tail.prev
	if oldest == s.head {
		return
	}
	s.removeEntry(oldest)
}
