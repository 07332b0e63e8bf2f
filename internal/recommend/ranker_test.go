// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// rankerSnapshot builds a snapshot over four items with a known
// geometry: items 10 and 20 are identical, 30 sits between, 40 is
// orthogonal to 10/20.
func rankerSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	items := []Item{
		{ID: 10, Name: "ten"},
		{ID: 20, Name: "twenty"},
		{ID: 30, Name: "thirty"},
		{ID: 40, Name: "forty"},
	}
	rows := [][]float64{
		{1, 0},
		{1, 0},
		{0.6, 0.8},
		{0, 1},
	}
	space := &VectorSpace{
		Terms: []string{"first", "second"},
		Index: map[string]int{"first": 0, "second": 1},
		Rows:  rows,
	}

	snap, err := NewSnapshot(items, space, BuildSimilarity(rows), 1, time.Now())
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func TestTopN(t *testing.T) {
	snap := rankerSnapshot(t)

	tests := []struct {
		name   string
		itemID int
		n      int
		want   []int
	}{
		{
			name:   "ranked by similarity",
			itemID: 10,
			n:      2,
			want:   []int{20, 30},
		},
		{
			name:   "source item excluded",
			itemID: 10,
			n:      10,
			want:   []int{20, 30, 40},
		},
		{
			name:   "ties resolve by row order",
			itemID: 40,
			n:      3,
			want:   []int{30, 10, 20},
		},
		{
			name:   "zero n yields empty",
			itemID: 10,
			n:      0,
			want:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snap.TopN(tt.itemID, tt.n)
			if err != nil {
				t.Fatalf("TopN(%d, %d) error = %v", tt.itemID, tt.n, err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopN(%d, %d) = %v, want %v", tt.itemID, tt.n, got, tt.want)
			}
		})
	}
}

func TestTopNUnknownItem(t *testing.T) {
	snap := rankerSnapshot(t)

	_, err := snap.TopN(999, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("TopN(999) error = %v, want ErrNotFound", err)
	}
}

func TestTopNWithScores(t *testing.T) {
	snap := rankerSnapshot(t)

	scored, err := snap.TopNWithScores(10, 2)
	if err != nil {
		t.Fatalf("TopNWithScores() error = %v", err)
	}

	if len(scored) != 2 {
		t.Fatalf("got %d results, want 2", len(scored))
	}
	if scored[0].ID != 20 || math.Abs(scored[0].Score-1.0) > 1e-9 {
		t.Errorf("first = {%d, %f}, want {20, 1.0}", scored[0].ID, scored[0].Score)
	}
	if scored[1].ID != 30 || math.Abs(scored[1].Score-0.6) > 1e-9 {
		t.Errorf("second = {%d, %f}, want {30, 0.6}", scored[1].ID, scored[1].Score)
	}

	// Scores must be non-increasing.
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("scores not sorted: %f before %f", scored[i-1].Score, scored[i].Score)
		}
	}
}

func TestTopNDeterminism(t *testing.T) {
	snap := rankerSnapshot(t)

	first, err := snap.TopN(40, 3)
	if err != nil {
		t.Fatalf("TopN() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := snap.TopN(40, 3)
		if err != nil {
			t.Fatalf("TopN() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ranking changed between runs: %v vs %v", first, again)
		}
	}
}
