// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package solver

import (
	"errors"
	"math"
	"testing"
)

func TestSolveSingleObservation(t *testing.T) {
	t.Parallel()

	// With one item f = [1, 0], score 4.0, k = 2, λ = 0.1:
	// (1 + 0.1·2)·w0 = 4.0  →  w0 = 4/1.2
	// (0.1·2)·w1 = 0        →  w1 = 0
	s, err := NewLeastSquares(2, 0.1)
	if err != nil {
		t.Fatalf("NewLeastSquares: %v", err)
	}

	w, err := s.Solve([][]float64{{1, 0}}, []float64{4})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if got, want := w[0], 4.0/1.2; math.Abs(got-want) > 1e-9 {
		t.Errorf("w0 = %v, want %v", got, want)
	}
	if math.Abs(w[1]) > 1e-9 {
		t.Errorf("w1 = %v, want 0", w[1])
	}
}

func TestSolveOrthonormalFeaturesNoRegularization(t *testing.T) {
	t.Parallel()

	// Orthonormal features and λ = 0 make A the identity, so the solved
	// weights equal the observed scores exactly.
	s, err := NewLeastSquares(3, 0)
	if err != nil {
		t.Fatalf("NewLeastSquares: %v", err)
	}

	features := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	scores := []float64{2.5, -1, 7}

	w, err := s.Solve(features, scores)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range scores {
		if math.Abs(w[i]-scores[i]) > 1e-9 {
			t.Errorf("w[%d] = %v, want %v", i, w[i], scores[i])
		}
	}
}

func TestSolveShrinksTowardZero(t *testing.T) {
	t.Parallel()

	// Raising λ must shrink the solution toward zero.
	features := [][]float64{{1, 1}, {1, -1}}
	scores := []float64{3, 1}

	small, _ := NewLeastSquares(2, 0.01)
	large, _ := NewLeastSquares(2, 10)

	ws, err := small.Solve(features, scores)
	if err != nil {
		t.Fatalf("Solve small λ: %v", err)
	}
	wl, err := large.Solve(features, scores)
	if err != nil {
		t.Fatalf("Solve large λ: %v", err)
	}

	normSmall := math.Hypot(ws[0], ws[1])
	normLarge := math.Hypot(wl[0], wl[1])
	if normLarge >= normSmall {
		t.Errorf("‖w(λ=10)‖ = %v should be smaller than ‖w(λ=0.01)‖ = %v", normLarge, normSmall)
	}
}

func TestSolveReproducible(t *testing.T) {
	t.Parallel()

	s, _ := NewLeastSquares(4, 0.05)
	features := [][]float64{
		{0.3, -1.2, 0.7, 2.1},
		{1.1, 0.4, -0.9, 0.2},
		{-0.5, 0.8, 1.3, -1.7},
	}
	scores := []float64{4.5, 2, 3.5}

	first, err := s.Solve(features, scores)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := s.Solve(features, scores)
		if err != nil {
			t.Fatalf("Solve repeat %d: %v", i, err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("solve %d not bit-identical at %d: %v vs %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestSolveMismatchedInputs(t *testing.T) {
	t.Parallel()

	s, _ := NewLeastSquares(2, 0.1)

	if _, err := s.Solve([][]float64{{1, 0}}, []float64{1, 2}); !errors.Is(err, ErrMismatchedInputs) {
		t.Errorf("count mismatch error = %v, want ErrMismatchedInputs", err)
	}
	if _, err := s.Solve([][]float64{{1, 0, 0}}, []float64{1}); !errors.Is(err, ErrMismatchedInputs) {
		t.Errorf("dimension mismatch error = %v, want ErrMismatchedInputs", err)
	}
}

func TestSolveSingularWithoutRegularization(t *testing.T) {
	t.Parallel()

	// One observation in two dimensions with λ = 0 leaves A rank deficient.
	s, _ := NewLeastSquares(2, 0)
	if _, err := s.Solve([][]float64{{1, 0}}, []float64{4}); !errors.Is(err, ErrNotPositiveDefinite) {
		t.Errorf("singular solve error = %v, want ErrNotPositiveDefinite", err)
	}
}

func TestNewLeastSquaresValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewLeastSquares(0, 0.1); err == nil {
		t.Error("expected error for zero feature dimension")
	}
	if _, err := NewLeastSquares(2, -0.1); err == nil {
		t.Error("expected error for negative lambda")
	}
}
