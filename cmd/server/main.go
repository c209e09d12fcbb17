// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package main is the entry point for the Coterie server.
//
// Coterie manages community capacity for a photo-sharing platform: it scores
// member engagement over a trailing window, classifies members into capacity
// tiers, rotates persistently inactive members to a waitlist against a
// membership ceiling, and curates a highlighted-content set.
//
// Startup order:
//
//  1. Configuration: koanf layered load (defaults, config.yaml, COTERIE_* env),
//     validated before any mutation
//  2. Logging: zerolog (JSON in production, console in development)
//  3. Database: DuckDB store with idempotent schema
//  4. Lease manager: BadgerDB-backed run leases
//  5. Notification sink: NATS when enabled, log-only otherwise
//  6. Domain wiring: scoring engine, evaluator, rotation controller,
//     highlight selector, audit recorder
//  7. Supervisor tree: scheduler and HTTP server under suture
//
// Graceful shutdown on SIGINT/SIGTERM: the supervisor stops both services,
// then the audit recorder drains and the stores close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/coterie/internal/api"
	"github.com/tomtom215/coterie/internal/audit"
	"github.com/tomtom215/coterie/internal/community"
	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/highlight"
	"github.com/tomtom215/coterie/internal/lease"
	"github.com/tomtom215/coterie/internal/logging"
	"github.com/tomtom215/coterie/internal/notify"
	"github.com/tomtom215/coterie/internal/platform"
	"github.com/tomtom215/coterie/internal/scheduler"
	"github.com/tomtom215/coterie/internal/scoring"
	"github.com/tomtom215/coterie/internal/supervisor"
	"github.com/tomtom215/coterie/internal/supervisor/services"
)

func main() {
	// Load validates before returning, so a broken deployment config fails
	// here before any mutation.
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Int("ceiling", cfg.Tiers.Ceiling).
		Dur("rotation_interval", cfg.Rotation.RunInterval).
		Msg("Starting Coterie")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	leases, err := lease.New(&cfg.Lease, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize lease manager")
	}
	defer func() {
		if err := leases.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing lease store")
		}
	}()

	var sink notify.Sink
	if cfg.Notify.Enabled {
		natsSink, err := notify.NewNATSSink(&cfg.Notify, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect notification sink")
		}
		sink = natsSink
		logging.Info().Str("url", cfg.Notify.URL).Msg("NATS notification sink connected")
	} else {
		sink = notify.NewLogSink(logger)
		logging.Info().Msg("Notifications disabled, using log sink")
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notification sink")
		}
	}()

	recorder := audit.NewRecorder(db, audit.DefaultBufferSize, logger)
	defer recorder.Stop()

	// Platform adapters share the store the ingest pipeline writes into.
	directory := platform.NewDirectory(db)
	counters := scoring.NewBreakerSource(platform.NewCounters(db), cfg.Breaker)
	catalog := platform.NewCatalog(db, cfg.Highlight.EligibilityWindowDays)

	engine := scoring.NewEngine(db, directory, counters, recorder, &cfg.Scoring, &cfg.Tiers, logger)
	evaluator := community.NewEvaluator(db, &cfg.Tiers, logger)
	rotation := community.NewController(db, directory, leases, sink, recorder, &cfg.Rotation, logger)
	selector := highlight.NewSelector(catalog, catalog, db, &cfg.Highlight, logger)

	sched := scheduler.New(engine, evaluator, rotation, selector, &cfg.Rotation, &cfg.Highlight, logger)

	handler := api.NewHandler(db, rotation, engine, &cfg.API)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.Server),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddControlService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Coterie stopped gracefully")
}
