// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"fmt"
	"sort"
)

// TopN returns the IDs of the n items most similar to the given item,
// excluding the item itself, in descending score order. Equal scores are
// broken by ascending row position, so results are deterministic
// regardless of sort algorithm stability. If fewer than n other items
// exist, all of them are returned; n <= 0 returns an empty list.
func (s *Snapshot) TopN(itemID, n int) ([]int, error) {
	ranked, err := s.TopNWithScores(itemID, n)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids, nil
}

// TopNWithScores is TopN with each item's cosine similarity attached.
func (s *Snapshot) TopNWithScores(itemID, n int) ([]ScoredItem, error) {
	src, ok := s.rowByID[itemID]
	if !ok {
		return nil, fmt.Errorf("rank item %d: %w", itemID, ErrNotFound)
	}

	if n <= 0 {
		return []ScoredItem{}, nil
	}

	scores := s.Similarity[src]

	// The source row is excluded unconditionally, before ranking, so it
	// can never appear even if self-similarity were not maximal.
	candidates := make([]int, 0, len(scores)-1)
	for row := range scores {
		if row != src {
			candidates = append(candidates, row)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := candidates[i], candidates[j]
		if scores[ri] != scores[rj] {
			return scores[ri] > scores[rj]
		}
		return ri < rj
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}

	ranked := make([]ScoredItem, len(candidates))
	for i, row := range candidates {
		ranked[i] = ScoredItem{ID: s.Items[row].ID, Score: scores[row]}
	}
	return ranked, nil
}
