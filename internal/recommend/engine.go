// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Config contains engine configuration.
type Config struct {
	// Vectorizer configures vocabulary selection and weighting.
	Vectorizer VectorizerConfig

	// TrainTimeout bounds a single fit, including the catalog pull and
	// the O(n²) similarity build.
	TrainTimeout time.Duration
}

// DefaultConfig returns production-ready engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Vectorizer:   DefaultVectorizerConfig(),
		TrainTimeout: 5 * time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.TrainTimeout < 0 {
		return fmt.Errorf("train timeout must not be negative, got %s", c.TrainTimeout)
	}
	if c.Vectorizer.MaxDocFreq > 1 {
		return fmt.Errorf("max document frequency must be a fraction, got %f", c.Vectorizer.MaxDocFreq)
	}
	return nil
}

// Engine owns the fitted model lifecycle and answers similarity queries.
// It is safe for concurrent use.
type Engine struct {
	config  *Config
	logger  zerolog.Logger
	catalog CatalogStore
	store   ModelStore

	// snapshot is the published fitted model. Queries read it once and
	// never take a lock; training swaps in a fresh snapshot wholesale.
	snapshot atomic.Pointer[Snapshot]
	state    atomic.Int32

	// trainMu serializes writers: whoever is fitting holds it.
	trainMu sync.Mutex

	// initGroup collapses concurrent first-use calls into one fit.
	initGroup singleflight.Group

	modelVersion atomic.Int32

	statusMu         sync.Mutex
	lastError        string
	lastTrainDur     time.Duration
	restoredFromDisk bool
}

// NewEngine creates a recommendation engine.
//
// The model store may be nil, in which case every process start trains
// from scratch and nothing is persisted.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, catalog CatalogStore, store ModelStore, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}

	e := &Engine{
		config:  cfg,
		logger:  logger.With().Str("component", "recommend").Logger(),
		catalog: catalog,
		store:   store,
	}
	e.state.Store(int32(StateUninitialized))
	return e, nil
}

// GetRecommendations returns the IDs of the n items most similar to the
// given item. It triggers the load-or-train path on first use; see
// ensureReady for the waiting semantics.
func (e *Engine) GetRecommendations(ctx context.Context, itemID, n int) ([]int, error) {
	snap, err := e.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	return snap.TopN(itemID, n)
}

// GetRecommendationsWithScores is GetRecommendations with cosine
// similarity scores attached, each in [0, 1].
func (e *Engine) GetRecommendationsWithScores(ctx context.Context, itemID, n int) ([]ScoredItem, error) {
	snap, err := e.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	return snap.TopNWithScores(itemID, n)
}

// Item resolves an item from the current snapshot.
func (e *Engine) Item(ctx context.Context, itemID int) (Item, error) {
	snap, err := e.ensureReady(ctx)
	if err != nil {
		return Item{}, err
	}
	it, ok := snap.Item(itemID)
	if !ok {
		return Item{}, fmt.Errorf("resolve item %d: %w", itemID, ErrNotFound)
	}
	return it, nil
}

// Retrain forces a fresh fit regardless of any existing snapshot and
// publishes the result atomically. In-flight queries observe either the
// old snapshot or the new one, never a partial state.
func (e *Engine) Retrain(ctx context.Context) error {
	return e.train(ctx)
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Status reports lifecycle state and current model statistics.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	st := Status{
		State:                  e.State().String(),
		ModelVersion:           int(e.modelVersion.Load()),
		LastError:              e.lastError,
		LastTrainingDurationMS: e.lastTrainDur.Milliseconds(),
		RestoredFromDisk:       e.restoredFromDisk,
	}
	if snap := e.snapshot.Load(); snap != nil {
		st.ItemCount = snap.ItemCount()
		st.VocabularySize = len(snap.Space.Terms)
		st.TrainedAt = snap.TrainedAt
	}
	return st
}

// ensureReady returns the current snapshot, initializing the engine on
// first use. Concurrent first-use callers share a single in-flight fit;
// a caller whose context is cancelled while waiting stops waiting, but
// the fit itself continues for the others. After a failed initialization
// the engine stays in the failed state and every query reports not-ready
// until an explicit retrain succeeds.
func (e *Engine) ensureReady(ctx context.Context) (*Snapshot, error) {
	if snap := e.snapshot.Load(); snap != nil {
		return snap, nil
	}

	if e.State() == StateFailed {
		return nil, e.notReady()
	}

	ch := e.initGroup.DoChan("init", func() (interface{}, error) {
		return nil, e.initialize()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, e.notReady()
		}
	}

	snap := e.snapshot.Load()
	if snap == nil {
		return nil, e.notReady()
	}
	return snap, nil
}

// notReady builds the not-ready error, attaching the last fit failure
// when one is recorded.
func (e *Engine) notReady() error {
	e.statusMu.Lock()
	last := e.lastError
	e.statusMu.Unlock()

	if last != "" {
		return fmt.Errorf("%w: %s", ErrNotReady, last)
	}
	return ErrNotReady
}

// initialize performs the load-or-train path: restore a persisted
// snapshot if one exists, otherwise fit from the catalog. It runs under
// its own timeout, detached from any individual waiter's context.
func (e *Engine) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.TrainTimeout)
	defer cancel()

	if e.store != nil {
		e.state.Store(int32(StateLoading))
		if snap, ok := e.store.Load(ctx); ok {
			e.modelVersion.Store(int32(snap.Version))
			e.publish(snap, true, 0)
			e.logger.Info().
				Int("items", snap.ItemCount()).
				Int("vocabulary", len(snap.Space.Terms)).
				Int("version", snap.Version).
				Msg("restored model snapshot")
			return nil
		}
		e.logger.Info().Msg("no usable snapshot, training from catalog")
	}

	return e.train(ctx)
}

// train performs one full fit and publishes the resulting snapshot.
// Only one writer runs at a time.
func (e *Engine) train(ctx context.Context) error {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	e.state.Store(int32(StateTraining))
	start := time.Now()
	e.logger.Info().Msg("starting model training")

	snap, err := e.fit(ctx)
	if err != nil {
		e.fail(err)
		return err
	}

	e.publish(snap, false, time.Since(start))

	// Persistence is best-effort: a failed save is reported but never
	// fails an otherwise-successful fit.
	if e.store != nil {
		if err := e.store.Save(ctx, snap); err != nil {
			e.logger.Warn().Err(err).Msg("failed to persist model snapshot")
		}
	}

	e.logger.Info().
		Int("items", snap.ItemCount()).
		Int("vocabulary", len(snap.Space.Terms)).
		Int("version", snap.Version).
		Dur("duration", time.Since(start)).
		Msg("model training complete")

	return nil
}

// fit runs the training pipeline: catalog pull, featurization, vector
// space build, similarity build.
func (e *Engine) fit(ctx context.Context) (*Snapshot, error) {
	items, err := e.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("load catalog: %w", ErrNoData)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	soups := make([]string, len(items))
	for i, it := range items {
		soups[i] = Soup(it)
	}

	space, err := NewVectorizer(e.config.Vectorizer).Fit(soups)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sim := BuildSimilarity(space.Rows)

	version := int(e.modelVersion.Add(1))
	return NewSnapshot(items, space, sim, version, time.Now())
}

// publish atomically swaps in a new snapshot and records status.
func (e *Engine) publish(snap *Snapshot, restored bool, dur time.Duration) {
	e.snapshot.Store(snap)
	e.state.Store(int32(StateReady))

	e.statusMu.Lock()
	e.lastError = ""
	e.restoredFromDisk = restored
	if dur > 0 {
		e.lastTrainDur = dur
	}
	e.statusMu.Unlock()
}

// fail records a fit failure. Queries report not-ready until a retrain
// succeeds; an existing snapshot, if any, stays published.
func (e *Engine) fail(err error) {
	if e.snapshot.Load() == nil {
		e.state.Store(int32(StateFailed))
	} else {
		e.state.Store(int32(StateReady))
	}

	e.statusMu.Lock()
	e.lastError = err.Error()
	e.statusMu.Unlock()

	e.logger.Error().Err(err).Msg("model training failed")
}
