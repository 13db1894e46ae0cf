// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package api exposes the serving engine over HTTP.
//
// All endpoints live under /api/v1 and return the APIResponse envelope.
// Item payloads are passed through opaquely: the handler hands the raw JSON
// bytes to the model, which owns decoding. Operational endpoints (/health,
// /metrics) sit outside the versioned prefix.
package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/predikt-io/predikt/internal/engine"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Handler serves the model endpoints backed by a registry.
type Handler struct {
	registry *engine.Registry
	started  time.Time
	version  string
}

// NewHandler creates a Handler over the given registry.
func NewHandler(registry *engine.Registry, version string) *Handler {
	return &Handler{
		registry: registry,
		started:  time.Now(),
		version:  version,
	}
}

// model resolves the {model} URL parameter, writing the error response on
// failure.
func (h *Handler) model(w http.ResponseWriter, r *http.Request) (engine.Model, bool) {
	name := chi.URLParam(r, "model")
	m, ok := h.registry.Get(name)
	if !ok {
		respondError(w, r, http.StatusNotFound, codeModelNotFound, "Unknown model: "+name, nil)
		return nil, false
	}
	return m, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, "Invalid request body: "+err.Error(), err)
		return false
	}
	return true
}

type predictRequest struct {
	UserID int64           `json:"user_id"`
	Item   json.RawMessage `json:"item"`
}

type predictResponse struct {
	Score float64 `json:"score"`
}

// Predict scores one (user, item) pair.
//
// Method: POST
// Path: /api/v1/models/{model}/predict
//
// Response:
//   - 200: Score computed
//   - 400: Malformed body or undecodable item
//   - 404: Unknown model
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	var req predictRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Item) == 0 {
		respondError(w, r, http.StatusBadRequest, codeValidation, "item is required", nil)
		return
	}

	start := time.Now()
	score, err := m.PredictRaw(r.Context(), req.UserID, req.Item)
	switch {
	case errors.Is(err, engine.ErrBadItem):
		respondError(w, r, http.StatusBadRequest, codeItemDecode, "Item payload could not be decoded", err)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Prediction failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   predictResponse{Score: score},
		Metadata: Metadata{
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

type feedbackRequest struct {
	UserID int64           `json:"user_id"`
	Item   json.RawMessage `json:"item"`
	Score  *float64        `json:"score"`
}

// Feedback records one observation and updates the user's weights.
//
// Method: POST
// Path: /api/v1/models/{model}/feedback
//
// Response:
//   - 200: Observation recorded and weights updated
//   - 400: Malformed body, undecodable item, or non-finite score
//   - 404: Unknown model
//   - 500: Persistence or solve failure (the observation may still be
//     durable; retrying is safe because feedback is idempotent)
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Item) == 0 {
		respondError(w, r, http.StatusBadRequest, codeValidation, "item is required", nil)
		return
	}
	if req.Score == nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, "score is required", nil)
		return
	}
	if math.IsNaN(*req.Score) || math.IsInf(*req.Score, 0) {
		respondError(w, r, http.StatusBadRequest, codeValidation, "score must be finite", nil)
		return
	}

	start := time.Now()
	err := m.ObserveRaw(r.Context(), req.UserID, req.Item, *req.Score)
	switch {
	case errors.Is(err, engine.ErrBadItem):
		respondError(w, r, http.StatusBadRequest, codeItemDecode, "Item payload could not be decoded", err)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Feedback update failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Metadata: Metadata{
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Retrain triggers a full offline retraining run for the model.
//
// Method: POST
// Path: /api/v1/models/{model}/retrain
//
// Response:
//   - 202: Retrain triggered
//   - 404: Unknown model
//   - 501: Model has no retrain hook
//   - 503: Circuit breaker open after repeated trigger failures
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	err := m.Retrain(r.Context())
	switch {
	case errors.Is(err, engine.ErrNoRetrainHook):
		respondError(w, r, http.StatusNotImplemented, codeRetrainUnsupported, "Model does not support retraining", nil)
		return
	case errors.Is(err, engine.ErrRetrainUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, codeRetrainUnavailable, "Retraining temporarily unavailable", err)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Retrain trigger failed", err)
		return
	}

	respondJSON(w, r, http.StatusAccepted, &APIResponse{Status: "success"})
}

type modelsResponse struct {
	Models []string `json:"models"`
}

// Models lists the registered model names.
//
// Method: GET
// Path: /api/v1/models
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   modelsResponse{Models: h.registry.Names()},
	})
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Models        int     `json:"models"`
}

// Health reports liveness.
//
// Method: GET
// Path: /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Data: healthResponse{
			Status:        "ok",
			Version:       h.version,
			UptimeSeconds: time.Since(h.started).Seconds(),
			Models:        len(h.registry.Names()),
		},
	})
}
