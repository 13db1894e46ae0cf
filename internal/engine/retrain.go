// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/predikt-io/predikt/internal/metrics"
)

var (
	// ErrNoRetrainHook is returned by Retrain when the model definition does
	// not provide a retrain function.
	ErrNoRetrainHook = errors.New("model has no retrain hook")

	// ErrRetrainUnavailable is returned when the retrain circuit breaker is
	// open after repeated failures of the retrain hook.
	ErrRetrainUnavailable = errors.New("retrain temporarily unavailable")
)

// retrainBreaker wraps the model's retrain hook in a circuit breaker so a
// broken training system is not hammered on every trigger.
type retrainBreaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func newRetrainBreaker(model string) *retrainBreaker {
	return &retrainBreaker{
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "retrain-" + model,
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (b *retrainBreaker) execute(ctx context.Context, fn RetrainFunc) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retrain triggers a full offline retraining run through the model's hook.
// Triggers are rate-protected by a circuit breaker: after three consecutive
// hook failures further triggers fail fast with ErrRetrainUnavailable until
// the breaker's cool-off elapses.
func (e *Engine[T]) Retrain(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if e.def.Retrain == nil {
		return fmt.Errorf("engine: model %s: %w", e.def.Name, ErrNoRetrainHook)
	}

	err := e.breaker.execute(ctx, e.def.Retrain)
	switch {
	case err == nil:
		metrics.RetrainTriggersTotal.WithLabelValues(e.def.Name, "ok").Inc()
		e.log.Info().Msg("retrain triggered")
		return nil

	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RetrainTriggersTotal.WithLabelValues(e.def.Name, "breaker_open").Inc()
		e.log.Warn().Msg("retrain trigger rejected, circuit breaker open")
		return fmt.Errorf("engine: model %s: %w", e.def.Name, ErrRetrainUnavailable)

	default:
		metrics.RetrainTriggersTotal.WithLabelValues(e.def.Name, "error").Inc()
		e.log.Error().Err(err).Msg("retrain trigger failed")
		return fmt.Errorf("engine: model %s: retrain: %w", e.def.Name, err)
	}
}
