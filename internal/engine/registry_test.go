// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package engine

import (
	"context"
	"errors"
	"testing"
)

// stubModel implements Model with canned behavior for registry tests.
type stubModel struct {
	name     string
	closed   bool
	closeErr error
}

func (m *stubModel) Name() string     { return m.name }
func (m *stubModel) NumFeatures() int { return 2 }
func (m *stubModel) PredictRaw(context.Context, int64, []byte) (float64, error) {
	return 0, nil
}
func (m *stubModel) ObserveRaw(context.Context, int64, []byte, float64) error { return nil }
func (m *stubModel) Retrain(context.Context) error                            { return nil }
func (m *stubModel) Close() error {
	m.closed = true
	return m.closeErr
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	m := &stubModel{name: "movies"}

	if err := r.Register(m); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := r.Get("movies")
	if !ok || got != Model(m) {
		t.Errorf("Get = %v, %v; want the registered model", got, ok)
	}
	if _, ok := r.Get("absent"); ok {
		t.Error("Get on unknown name should report absence")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubModel{name: "movies"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubModel{name: "movies"}); !errors.Is(err, ErrDuplicateModel) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateModel", err)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"zebra", "alpha", "middle"} {
		if err := r.Register(&stubModel{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"alpha", "middle", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestRegistryCloseClosesAllModels(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	failErr := errors.New("flush failed")
	a := &stubModel{name: "a", closeErr: failErr}
	b := &stubModel{name: "b"}
	_ = r.Register(a)
	_ = r.Register(b)

	err := r.Close()
	if !errors.Is(err, failErr) {
		t.Errorf("Close = %v, want joined %v", err, failErr)
	}
	if !a.closed || !b.closed {
		t.Error("one failing model must not prevent closing the rest")
	}
	if len(r.Names()) != 0 {
		t.Error("registry should be empty after Close")
	}
}
