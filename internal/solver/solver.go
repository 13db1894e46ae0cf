// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package solver computes a user's weight vector from accumulated
// observations by solving the regularized normal equations
//
//	(Σᵢ fᵢ fᵢᵗ + λ·k·I) · w = Σᵢ fᵢ·scoreᵢ
//
// where fᵢ are the feature vectors of the user's rated items, k is the
// feature dimension, and λ is the regularization constant shared with the
// offline training job. This is the per-user half step of regularized
// alternating least squares: item features held fixed, user vector solved
// in closed form.
//
// The left-hand matrix is symmetric positive-definite once λ > 0, so a
// Cholesky factorization is used. The same routine runs on every call, so
// repeated solves over identical inputs are bit-for-bit reproducible.
package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMismatchedInputs reports a caller contract violation: the feature
	// and score collections do not line up, or a feature vector has the
	// wrong dimension. The request fails loudly instead of skipping items.
	ErrMismatchedInputs = errors.New("solver: mismatched feature/score inputs")

	// ErrNotPositiveDefinite reports that the normal-equations matrix could
	// not be factorized. With λ > 0 this indicates a numerical problem, not
	// an expected state.
	ErrNotPositiveDefinite = errors.New("solver: normal equations not positive definite")
)

// LeastSquares solves the regularized per-user system for a fixed feature
// dimension and regularization constant. It is stateless across calls and
// safe for concurrent use.
type LeastSquares struct {
	numFeatures int
	lambda      float64
}

// NewLeastSquares creates a solver for k-dimensional feature vectors.
// λ must not be negative; λ = 0 disables regularization and leaves
// positive-definiteness up to the observations.
func NewLeastSquares(numFeatures int, lambda float64) (*LeastSquares, error) {
	if numFeatures <= 0 {
		return nil, fmt.Errorf("solver: numFeatures must be positive, got %d", numFeatures)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("solver: lambda must not be negative, got %f", lambda)
	}
	return &LeastSquares{numFeatures: numFeatures, lambda: lambda}, nil
}

// NumFeatures returns the feature dimension k.
func (s *LeastSquares) NumFeatures() int { return s.numFeatures }

// Lambda returns the regularization constant.
func (s *LeastSquares) Lambda() float64 { return s.lambda }

// Solve computes the weight vector for one user. features[i] is the feature
// vector of the i-th rated item and scores[i] its observed score; the two
// slices must be index-aligned and every vector must have length k.
func (s *LeastSquares) Solve(features [][]float64, scores []float64) ([]float64, error) {
	if len(features) != len(scores) {
		return nil, fmt.Errorf("%w: %d feature vectors vs %d scores", ErrMismatchedInputs, len(features), len(scores))
	}
	for i, f := range features {
		if len(f) != s.numFeatures {
			return nil, fmt.Errorf("%w: feature vector %d has length %d, want %d", ErrMismatchedInputs, i, len(f), s.numFeatures)
		}
	}

	k := s.numFeatures

	// A = Σ f fᵗ + λ·k·I, accumulated on the upper triangle.
	a := mat.NewSymDense(k, nil)
	b := mat.NewVecDense(k, nil)

	for idx, f := range features {
		score := scores[idx]
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				a.SetSym(i, j, a.At(i, j)+f[i]*f[j])
			}
			b.SetVec(i, b.AtVec(i)+f[i]*score)
		}
	}

	reg := s.lambda * float64(k)
	for i := 0; i < k; i++ {
		a.SetSym(i, i, a.At(i, i)+reg)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, ErrNotPositiveDefinite
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, b); err != nil {
		return nil, fmt.Errorf("solver: solve failed: %w", err)
	}

	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = w.AtVec(i)
	}
	return out, nil
}
