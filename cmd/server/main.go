// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package main is the entry point for the Predikt server.
//
// Predikt serves online predictions for (user, item) pairs and folds user
// feedback back into per-user weight vectors in real time. The server
// initializes components in the following order:
//
//  1. Configuration: layered loading from defaults, YAML file, and
//     PREDIKT_* environment variables (koanf v2)
//  2. Logging: global zerolog logger
//  3. Models: one engine per registered model, each with its feature cache
//     and embedded BadgerDB tables for weights and observations
//  4. HTTP server: chi router with the /api/v1 endpoints, /health, and
//     Prometheus /metrics
//
// # Configuration
//
// Highest priority wins:
//   - Environment variables (PREDIKT_SERVER__ADDR, PREDIKT_STORAGE__PATH, ...)
//   - Config file (predikt.yaml, or -config <path>)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests up to the configured
// shutdown timeout, then closes every model's stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/predikt-io/predikt/internal/api"
	"github.com/predikt-io/predikt/internal/config"
	"github.com/predikt-io/predikt/internal/engine"
	"github.com/predikt-io/predikt/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "predikt:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default: search predikt.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("predikt", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		return err
	}
	log := logging.With("main")
	log.Info().Str("version", version).Str("addr", cfg.Server.Addr).Msg("predikt starting")

	registry := engine.NewRegistry()
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error().Err(err).Msg("closing models")
		}
	}()

	eng, err := engine.New(
		newHashedFeatureDefinition("default", 16, 0.1),
		engine.Config{
			DataDir:       cfg.Storage.Path,
			SyncWrites:    cfg.Storage.SyncWrites,
			CacheCapacity: cfg.Cache.Capacity,
			CacheShards:   cfg.Cache.Shards,
		},
	)
	if err != nil {
		return err
	}
	if err := registry.Register(eng); err != nil {
		return err
	}

	router := api.NewRouter(registry, api.RouterConfig{
		Version:   version,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	srv := api.NewServer(api.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("predikt stopped")
	return nil
}
