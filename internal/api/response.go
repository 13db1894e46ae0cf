// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/predikt-io/predikt/internal/logging"
)

// APIResponse is the uniform envelope for every JSON endpoint.
type APIResponse struct {
	Status   string    `json:"status"` // "success" or "error"
	Data     any       `json:"data,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError describes a failed request with a stable machine-readable code.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API.
const (
	codeValidation         = "VALIDATION_ERROR"
	codeModelNotFound      = "MODEL_NOT_FOUND"
	codeItemDecode         = "ITEM_DECODE_ERROR"
	codeRetrainUnavailable = "RETRAIN_UNAVAILABLE"
	codeRetrainUnsupported = "RETRAIN_UNSUPPORTED"
	codeRateLimited        = "RATE_LIMITED"
	codeInternal           = "INTERNAL_ERROR"
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *APIResponse) {
	response.Metadata.Timestamp = time.Now()
	response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log := logging.Ctx(r.Context())
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondError sends an error envelope and logs the underlying cause.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Error().Str("code", code).Err(err).Msg("api error")
	}

	respondJSON(w, r, status, &APIResponse{
		Status: "error",
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}
