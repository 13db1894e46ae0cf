// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/predikt-io/predikt/internal/logging"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	srv *http.Server
}

// NewServer creates a Server for the given handler.
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start serves until Shutdown is called. It blocks; a clean shutdown
// returns nil.
func (s *Server) Start() error {
	log := logging.With("api")
	log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log := logging.With("api")
	log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(ctx)
}
