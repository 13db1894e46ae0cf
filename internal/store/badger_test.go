// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func openTestStore(t *testing.T) *Badger[[]float64] {
	t.Helper()

	s, err := OpenBadger(BadgerOptions{
		Dir:   t.TempDir(),
		Table: "weights",
	}, VectorCodec{})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	want := []float64{1.5, -2.25, 0}
	if err := s.Put(ctx, 42, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Read-your-writes: the value must be visible immediately.
	got, err := s.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBadgerOverwrite(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, 1, []float64{1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, 1, []float64{2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0] != 2 {
		t.Errorf("Get after overwrite = %v, want [2]", got)
	}
}

func TestBadgerNotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	_, err := s.Get(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on absent key = %v, want ErrNotFound", err)
	}
}

func TestBadgerCorruptRecordIsNotAbsence(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, 7, []float64{1, 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Plant garbage bytes under the same key, bypassing the codec.
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(7), []byte{0xde, 0xad})
	})
	if err != nil {
		t.Fatalf("plant corrupt record: %v", err)
	}

	_, err = s.Get(ctx, 7)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Get on corrupt record = %v, want ErrCorruptRecord", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("corrupt record must not look like absence")
	}
	if !IsAbsentOrCorrupt(err) {
		t.Error("IsAbsentOrCorrupt should cover corruption for the fallback path")
	}
}

func TestBadgerNegativeAndLargeKeys(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range []int64{-1, 0, 1, 1 << 62} {
		if err := s.Put(ctx, key, []float64{float64(key)}); err != nil {
			t.Fatalf("Put(%d): %v", key, err)
		}
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%d): %v", key, err)
		}
		if got[0] != float64(key) {
			t.Errorf("Get(%d) = %v", key, got)
		}
	}
}

func TestBadgerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := OpenBadger(BadgerOptions{
		Dir:   t.TempDir(),
		Table: "weights",
	}, VectorCodec{})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := s.Get(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after close = %v, want ErrClosed", err)
	}
	if err := s.Put(context.Background(), 1, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after close = %v, want ErrClosed", err)
	}
}

func TestBadgerRejectsEmptyTable(t *testing.T) {
	t.Parallel()

	if _, err := OpenBadger(BadgerOptions{Dir: t.TempDir()}, VectorCodec{}); err == nil {
		t.Error("expected error for empty table name")
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := BadgerOptions{Dir: dir, Table: "weights"}
	ctx := context.Background()

	s, err := OpenBadger(opts, VectorCodec{})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.Put(ctx, 5, []float64{3.5}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenBadger(opts, VectorCodec{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got[0] != 3.5 {
		t.Errorf("Get after reopen = %v, want [3.5]", got)
	}
}
