// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/predikt-io/predikt/internal/logging"
	"github.com/predikt-io/predikt/internal/metrics"
)

// requestIDMiddleware assigns every request a unique ID, propagated through
// the context into logs and the response envelope, and echoed in the
// X-Request-ID header. An ID supplied by the client is kept.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// observeMiddleware records request logs and Prometheus metrics. The route
// label uses the chi route pattern, not the raw path, to keep metric
// cardinality bounded.
func observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), duration)

		log := logging.Ctx(r.Context())
		log.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Int("bytes", ww.BytesWritten()).
			Msg("http request")
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// rateLimitMiddleware applies a global token-bucket limit across all
// clients. A nil limiter disables limiting.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondError(w, r, http.StatusTooManyRequests, codeRateLimited, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
