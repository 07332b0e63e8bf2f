// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Command server runs the Mercatus recommendation service.
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

	"github.com/mercatus-labs/mercatus/internal/api"
	"github.com/mercatus-labs/mercatus/internal/cache"
	"github.com/mercatus-labs/mercatus/internal/catalog"
	"github.com/mercatus-labs/mercatus/internal/config"
	"github.com/mercatus-labs/mercatus/internal/explain"
	"github.com/mercatus-labs/mercatus/internal/logging"
	"github.com/mercatus-labs/mercatus/internal/recommend"
	"github.com/mercatus-labs/mercatus/internal/recommend/storage"
	"github.com/mercatus-labs/mercatus/internal/supervisor"
	"github.com/mercatus-labs/mercatus/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger := logging.Logger()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("snapshot_path", cfg.Recommend.SnapshotPath).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Starting Mercatus")

	// Catalog storage
	store, err := catalog.Open(cfg.Database.Path, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog database")
		}
	}()

	if cfg.Database.SeedDemoData {
		if err := store.SeedDemoData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed demo catalog")
		}
	}

	// Model persistence (optional)
	var modelStore recommend.ModelStore
	if cfg.Recommend.SnapshotPath != "" {
		snapStore, err := storage.NewStore(cfg.Recommend.SnapshotPath, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize model storage")
		}
		modelStore = snapStore
	} else {
		logging.Info().Msg("Model persistence disabled, training from scratch on startup")
	}

	// Recommendation engine
	engine, err := recommend.NewEngine(&recommend.Config{
		Vectorizer: recommend.VectorizerConfig{
			MaxFeatures: cfg.Recommend.MaxFeatures,
			MaxDocFreq:  cfg.Recommend.MaxDocFreq,
		},
		TrainTimeout: cfg.Recommend.TrainTimeout,
	}, catalog.NewProvider(store), modelStore, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	// Response cache
	responseCache := cache.New(cfg.Cache.TTL, cfg.Cache.Enabled)

	// Explainer: LLM-backed when an API key is configured, templates
	// otherwise.
	var explainer explain.Explainer
	if cfg.Explain.APIKey != "" {
		explainer = explain.NewLLMExplainer(explain.LLMConfig{
			APIKey:  cfg.Explain.APIKey,
			Model:   cfg.Explain.Model,
			BaseURL: cfg.Explain.BaseURL,
			Timeout: cfg.Explain.Timeout,
		}, logger)
		logging.Info().Str("model", cfg.Explain.Model).Msg("LLM explanations enabled")
	} else {
		explainer = explain.NewTemplateExplainer()
		logging.Info().Msg("Using template explanations")
	}

	// HTTP server
	handler := api.NewHandler(engine, store, explainer, responseCache, cfg, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.Server),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree; the slog adapter bridges zerolog to sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddTrainingService(services.NewTrainingService(engine, services.TrainingServiceConfig{
		TrainOnStartup: cfg.Recommend.TrainOnStartup,
		TrainInterval:  cfg.Recommend.TrainInterval,
	}, logger))

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Signal handling for graceful shutdown
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

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
