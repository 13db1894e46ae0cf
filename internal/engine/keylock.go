// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package engine

import "sync"

// keyLock serializes critical sections per key while letting different keys
// proceed fully in parallel. Entries are created on demand and removed when
// the last holder releases, so the table stays proportional to the number
// of in-flight updates, not the number of users ever seen.
type keyLock struct {
	mu      sync.Mutex
	entries map[int64]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[int64]*keyLockEntry)}
}

// lock acquires the lock for key and returns the release function.
func (l *keyLock) lock(key int64) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyLockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// inFlight returns the number of keys currently held or contended.
func (l *keyLock) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
