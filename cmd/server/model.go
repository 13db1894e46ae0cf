// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package main

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/goccy/go-json"

	"github.com/predikt-io/predikt/internal/engine"
)

// newHashedFeatureDefinition builds the built-in model: items are arbitrary
// JSON strings and features come from deterministic feature hashing, with
// each dimension derived from an independently salted FNV-1a hash of the
// item identifier. The same item always maps to the same vector, which is
// all the personalization update needs; swap in a real extractor for
// content-aware features.
func newHashedFeatureDefinition(name string, numFeatures int, lambda float64) engine.Definition[string] {
	return engine.Definition[string]{
		Name:        name,
		NumFeatures: numFeatures,
		Lambda:      lambda,
		ComputeFeatures: func(item string) ([]float64, error) {
			if item == "" {
				return nil, fmt.Errorf("empty item identifier")
			}
			return hashFeatures(item, numFeatures), nil
		},
		DecodeItem: func(data []byte) (string, error) {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return "", fmt.Errorf("item must be a JSON string: %w", err)
			}
			return s, nil
		},
	}
}

// hashFeatures maps an identifier to a unit-norm vector in [-1, 1]^k.
func hashFeatures(item string, k int) []float64 {
	v := make([]float64, k)
	var norm float64
	for i := range v {
		h := fnv.New64a()
		fmt.Fprintf(h, "%d:%s", i, item)
		// Map the hash onto [-1, 1).
		v[i] = float64(int64(h.Sum64())) / float64(math.MaxInt64)
		norm += v[i] * v[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}
