// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"context"
	"time"
)

// Item is the minimal product view the engine trains on.
// Items are immutable from the engine's perspective; the catalog owns them.
type Item struct {
	// ID is the unique product identifier.
	ID int `json:"id"`

	// Name is the product name.
	Name string `json:"name"`

	// Category is the product category.
	Category string `json:"category"`

	// Description is the free-text description. May be empty.
	Description string `json:"description"`
}

// ScoredItem pairs an item ID with its cosine similarity to the query item.
type ScoredItem struct {
	// ID is the recommended item's identifier.
	ID int `json:"id"`

	// Score is the cosine similarity in [0, 1].
	Score float64 `json:"score"`
}

// CatalogStore yields the items the engine trains on.
// This is typically implemented by the database layer; the interface lives
// here to avoid a circular import.
type CatalogStore interface {
	// ListItems returns all catalog items in a stable order.
	ListItems(ctx context.Context) ([]Item, error)
}

// ModelStore persists and restores fitted snapshots.
type ModelStore interface {
	// Save persists a snapshot. Failures are non-fatal to callers.
	Save(ctx context.Context, snap *Snapshot) error

	// Load restores the most recent snapshot. The second return value is
	// false when no usable snapshot exists (missing, corrupt, or written
	// by an incompatible schema) - never an error condition.
	Load(ctx context.Context) (*Snapshot, bool)
}

// State describes the engine lifecycle.
type State int32

const (
	// StateUninitialized means no fit has been attempted yet.
	StateUninitialized State = iota
	// StateLoading means a persisted snapshot restore is in progress.
	StateLoading
	// StateTraining means a fresh fit is in progress.
	StateTraining
	// StateReady means a snapshot is available for queries.
	StateReady
	// StateFailed means the last fit attempt failed.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateTraining:
		return "training"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status reports the engine's current lifecycle and model statistics.
type Status struct {
	// State is the engine lifecycle state.
	State string `json:"state"`

	// ModelVersion increments on every successful fit.
	ModelVersion int `json:"model_version"`

	// ItemCount is the number of items in the current snapshot.
	ItemCount int `json:"item_count"`

	// VocabularySize is the number of terms in the current snapshot.
	VocabularySize int `json:"vocabulary_size"`

	// TrainedAt is when the current snapshot was fitted.
	TrainedAt time.Time `json:"trained_at,omitzero"`

	// RestoredFromDisk is true when the current snapshot came from the
	// model store rather than a fresh fit in this process.
	RestoredFromDisk bool `json:"restored_from_disk"`

	// LastError holds the most recent fit failure, if any.
	LastError string `json:"last_error,omitempty"`

	// LastTrainingDurationMS is how long the last successful fit took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms"`
}
