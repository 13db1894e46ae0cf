// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrBadItem is returned by the raw entry points when an item payload
// cannot be decoded by the model's DecodeItem capability. Maps to a client
// error at the transport layer.
var ErrBadItem = errors.New("item payload could not be decoded")

// Model is the type-erased face of an engine, letting the serving layer
// host engines with different item types side by side. Item payloads cross
// this boundary as raw bytes and are decoded by the model itself.
type Model interface {
	Name() string
	NumFeatures() int

	// PredictRaw scores a (user, item) pair from the item's wire form.
	PredictRaw(ctx context.Context, userID int64, item []byte) (float64, error)

	// ObserveRaw records feedback for a (user, item) pair from the item's
	// wire form and updates the user's weights.
	ObserveRaw(ctx context.Context, userID int64, item []byte, score float64) error

	// Retrain triggers a full offline retraining run.
	Retrain(ctx context.Context) error

	Close() error
}

func (e *Engine[T]) decodeItem(data []byte) (T, error) {
	var zero T
	if e.def.DecodeItem == nil {
		return zero, fmt.Errorf("engine: model %s: no item decoder configured", e.def.Name)
	}
	item, err := e.def.DecodeItem(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrBadItem, err)
	}
	return item, nil
}

// PredictRaw implements Model.
func (e *Engine[T]) PredictRaw(ctx context.Context, userID int64, item []byte) (float64, error) {
	decoded, err := e.decodeItem(item)
	if err != nil {
		return 0, err
	}
	return e.Predict(ctx, userID, decoded)
}

// ObserveRaw implements Model.
func (e *Engine[T]) ObserveRaw(ctx context.Context, userID int64, item []byte, score float64) error {
	decoded, err := e.decodeItem(item)
	if err != nil {
		return err
	}
	return e.AddObservation(ctx, userID, decoded, score)
}
