// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Trainer is the engine surface the training service needs. Using an
// interface here avoids a circular import with the engine package.
type Trainer interface {
	// Retrain rebuilds the model from the current catalog.
	Retrain(ctx context.Context) error
}

// TrainingServiceConfig holds training lifecycle configuration.
type TrainingServiceConfig struct {
	// TrainOnStartup triggers training when the service starts. When
	// false, the engine trains lazily on the first query instead.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. 0 disables periodic
	// retraining.
	TrainInterval time.Duration
}

// TrainingService manages the model training lifecycle under suture
// supervision: optional eager training at startup and optional periodic
// retraining.
type TrainingService struct {
	trainer Trainer
	config  TrainingServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewTrainingService creates a training service.
//
//nolint:gocritic // logger passed by value per zerolog convention
func NewTrainingService(trainer Trainer, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	return &TrainingService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		name:    "training-service",
	}
}

// Serve implements the suture.Service interface.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("Training service starting")

	if s.config.TrainOnStartup {
		if err := s.train(ctx); err != nil {
			// The engine stays queryable from a restored snapshot, or
			// reports not-ready until a retrain succeeds.
			s.logger.Warn().Err(err).Msg("Startup training failed")
		}
	}

	if s.config.TrainInterval <= 0 {
		// Nothing periodic to do; park until shutdown so suture does
		// not treat this as a crash loop.
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("Scheduled retraining triggered")
			if err := s.train(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Scheduled retraining failed")
			}
		}
	}
}

// train performs one training cycle.
func (s *TrainingService) train(ctx context.Context) error {
	start := time.Now()
	s.logger.Info().Msg("Starting model training")

	if err := s.trainer.Retrain(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Model training complete")
	return nil
}

// String returns the service name for suture's log messages.
func (s *TrainingService) String() string {
	return s.name
}
