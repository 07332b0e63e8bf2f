// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"fmt"
	"time"
)

// Snapshot is one complete fitted model: the item list, the vocabulary,
// the TF-IDF matrix, and the all-pairs similarity matrix, all sharing the
// catalog load order as their sole join key. A snapshot is never mutated
// after construction; retraining builds a new one and swaps it in whole.
type Snapshot struct {
	// Items is the catalog at fit time, in load order. Row i of the
	// matrices corresponds to Items[i].
	Items []Item

	// Space is the fitted vocabulary and term-vector matrix.
	Space *VectorSpace

	// Similarity is the square cosine similarity matrix.
	Similarity [][]float64

	// Version increments on every successful fit in this process.
	Version int

	// TrainedAt is when the fit completed.
	TrainedAt time.Time

	// rowByID resolves an item ID to its row index.
	rowByID map[int]int
}

// NewSnapshot assembles and validates a fitted model. The item list, the
// vector space, and the similarity matrix must agree in size; item IDs
// must be unique.
func NewSnapshot(items []Item, space *VectorSpace, similarity [][]float64, version int, trainedAt time.Time) (*Snapshot, error) {
	n := len(items)
	if n == 0 {
		return nil, fmt.Errorf("build snapshot: %w", ErrNoData)
	}
	if len(space.Rows) != n {
		return nil, fmt.Errorf("build snapshot: %d items but %d vector rows", n, len(space.Rows))
	}
	if len(similarity) != n {
		return nil, fmt.Errorf("build snapshot: %d items but %d similarity rows", n, len(similarity))
	}
	for i, row := range similarity {
		if len(row) != n {
			return nil, fmt.Errorf("build snapshot: similarity row %d has %d columns, want %d", i, len(row), n)
		}
	}

	rowByID := make(map[int]int, n)
	for i, it := range items {
		if _, dup := rowByID[it.ID]; dup {
			return nil, fmt.Errorf("build snapshot: duplicate item id %d", it.ID)
		}
		rowByID[it.ID] = i
	}

	return &Snapshot{
		Items:      items,
		Space:      space,
		Similarity: similarity,
		Version:    version,
		TrainedAt:  trainedAt,
		rowByID:    rowByID,
	}, nil
}

// Item returns the item with the given ID, if it is part of this snapshot.
func (s *Snapshot) Item(id int) (Item, bool) {
	row, ok := s.rowByID[id]
	if !ok {
		return Item{}, false
	}
	return s.Items[row], true
}

// ItemCount returns the number of items in the snapshot.
func (s *Snapshot) ItemCount() int {
	return len(s.Items)
}
