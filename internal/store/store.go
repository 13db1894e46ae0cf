// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package store provides the persistent key-value storage layer.
//
// A Store persists one logical table (user weights, observation sets) as an
// embedded BadgerDB database keyed by a fixed 8-byte big-endian encoding of
// the numeric identity. Values are opaque blobs produced by a stateless
// Codec; a blob that fails to decode surfaces as ErrCorruptRecord, never as
// absence, so callers can tell a cold start from a storage bug.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no record exists for the key.
	ErrNotFound = errors.New("record not found")

	// ErrCorruptRecord is returned by Get when a stored blob exists but
	// cannot be decoded. Distinct from ErrNotFound by design: corruption
	// indicates a storage or codec bug, not an ordinary cold start.
	ErrCorruptRecord = errors.New("record corrupt")

	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("store closed")
)

// Store is the persistence contract for one logical table.
//
// Implementations must guarantee read-your-writes within a process: a
// successful Put is visible to any Get issued after it returns. Each Put is
// a single atomic write for its key; a failed Put leaves no partial state.
type Store[V any] interface {
	// Get returns the decoded value for key. Returns ErrNotFound if the key
	// is absent and ErrCorruptRecord if the stored bytes cannot be decoded.
	Get(ctx context.Context, key int64) (V, error)

	// Put durably persists value under key, overwriting any prior value.
	Put(ctx context.Context, key int64, value V) error

	// Close releases underlying resources. Idempotent.
	Close() error
}

// IsAbsentOrCorrupt reports whether err warrants the serving-layer fallback
// path (cold-start default). Corruption still deserves a louder log line,
// which the caller decides via errors.Is(err, ErrCorruptRecord).
func IsAbsentOrCorrupt(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptRecord)
}
