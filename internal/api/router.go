// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/predikt-io/predikt/internal/engine"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	// Version is reported by /health.
	Version string

	// RateLimit is the sustained request rate across all clients, in
	// requests per second. Zero or negative disables rate limiting.
	RateLimit float64

	// RateBurst is the rate limiter's burst allowance.
	RateBurst int
}

// NewRouter builds the HTTP routing tree over the given registry.
func NewRouter(registry *engine.Registry, cfg RouterConfig) http.Handler {
	h := NewHandler(registry, cfg.Version)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(observeMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimitMiddleware(limiter))

		r.Get("/models", h.Models)
		r.Route("/models/{model}", func(r chi.Router) {
			r.Post("/predict", h.Predict)
			r.Post("/feedback", h.Feedback)
			r.Post("/retrain", h.Retrain)
		})
	})

	return r
}
