// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Command squaredown syncs Square point-of-sale data into MongoDB and
// serves accounting reports over HTTP.
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

	"github.com/lakeannebrewhouse/squaredown/internal/api"
	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/connector"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/report"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
	"github.com/lakeannebrewhouse/squaredown/internal/supervisor"
	"github.com/lakeannebrewhouse/squaredown/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Square.Environment).
		Strs("locations", cfg.Square.LocationIDs).
		Str("database", cfg.Mongo.Database).
		Msg("Starting squaredown")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Connect(ctx, &cfg.Mongo)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Error closing MongoDB connection")
		}
	}()
	logging.Info().Msg("Connected to MongoDB")

	squareClient := square.NewCircuitBreakerClient(&cfg.Square)
	if err := squareClient.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to reach Square API (sync will retry)")
	} else {
		logging.Info().Msg("Connected to Square API")
	}

	manager, err := connector.NewManager(squareClient, db, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create sync manager")
	}

	generator := report.NewGenerator(db)

	ready := func(ctx context.Context) error {
		_, err := db.LoadSyncState(ctx, "orders")
		return err
	}
	handler := api.NewHandler(manager, generator, ready, cfg.Sync.StartMin)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
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

	logging.Info().Msg("Squaredown stopped gracefully")
}
