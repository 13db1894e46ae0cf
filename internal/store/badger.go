// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/predikt-io/predikt/internal/metrics"
)

// Badger is a durable Store backed by an embedded BadgerDB database.
// One physical database per logical table, opened with create-if-missing
// semantics. Safe for concurrent use.
type Badger[V any] struct {
	db    *badger.DB
	codec Codec[V]
	table string

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Dir is the parent data directory; the table gets a subdirectory.
	Dir string

	// Table names the logical table (also the subdirectory name).
	Table string

	// SyncWrites forces an fsync per write.
	SyncWrites bool
}

// OpenBadger opens (creating if missing) the database for one logical
// table. An open failure is fatal for the table: the caller cannot serve
// without it.
func OpenBadger[V any](opts BadgerOptions, codec Codec[V]) (*Badger[V], error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("open store: table name must not be empty")
	}

	path := filepath.Join(opts.Dir, opts.Table)
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", path, err)
	}

	bopts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(opts.SyncWrites)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", opts.Table, err)
	}

	return &Badger[V]{db: db, codec: codec, table: opts.Table}, nil
}

// encodeKey renders the numeric identity as 8 big-endian bytes, preserving
// numeric order for non-negative keys.
func encodeKey(key int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(key))
	return buf[:]
}

// Get returns the decoded value for key.
func (s *Badger[V]) Get(ctx context.Context, key int64) (V, error) {
	var zero V
	if s.closed.Load() {
		return zero, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	start := time.Now()
	var value V
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get key %d: %w", key, err)
		}

		return item.Value(func(val []byte) error {
			v, derr := s.codec.Decode(val)
			if derr != nil {
				return fmt.Errorf("%w: key %d: %v", ErrCorruptRecord, key, derr)
			}
			value = v
			return nil
		})
	})

	metrics.ObserveStoreOp(s.table, "get", time.Since(start), err != nil && !errors.Is(err, ErrNotFound))
	if err != nil {
		return zero, err
	}
	return value, nil
}

// Put durably persists value under key. The write is atomic for the key;
// on error nothing is persisted.
func (s *Badger[V]) Put(ctx context.Context, key int64, value V) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode value for key %d: %w", key, err)
	}

	start := time.Now()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(key), data)
	})
	metrics.ObserveStoreOp(s.table, "put", time.Since(start), err != nil)

	if err != nil {
		return fmt.Errorf("put key %d: %w", key, err)
	}
	return nil
}

// Close releases the underlying database. Idempotent; operations issued
// after Close return ErrClosed.
func (s *Badger[V]) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

var _ Store[[]float64] = (*Badger[[]float64])(nil)
