// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mercatus-labs/mercatus/internal/recommend"
)

func testSnapshot(t *testing.T) *recommend.Snapshot {
	t.Helper()

	items := []recommend.Item{
		{ID: 1, Name: "Wireless Headphones", Category: "Electronics", Description: "deep bass"},
		{ID: 2, Name: "Bluetooth Speaker", Category: "Electronics", Description: "rich bass"},
		{ID: 3, Name: "Running Shoes", Category: "Sports", Description: "lightweight"},
	}
	soups := make([]string, len(items))
	for i, it := range items {
		soups[i] = recommend.Soup(it)
	}

	space, err := recommend.NewVectorizer(recommend.DefaultVectorizerConfig()).Fit(soups)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	snap, err := recommend.NewSnapshot(items, space, recommend.BuildSimilarity(space.Rows), 3, time.Now())
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "model.snapshot"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	snap := testSnapshot(t)

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, ok := store.Load(ctx)
	if !ok {
		t.Fatal("Load() reported absent after Save()")
	}

	if !reflect.DeepEqual(loaded.Items, snap.Items) {
		t.Error("items changed across round trip")
	}
	if !reflect.DeepEqual(loaded.Space.Terms, snap.Space.Terms) {
		t.Error("vocabulary changed across round trip")
	}
	if !reflect.DeepEqual(loaded.Similarity, snap.Similarity) {
		t.Error("similarity matrix changed across round trip")
	}
	if loaded.Version != snap.Version {
		t.Errorf("version = %d, want %d", loaded.Version, snap.Version)
	}

	// The rebuilt snapshot must answer queries like the original.
	want, err := snap.TopN(1, 2)
	if err != nil {
		t.Fatalf("TopN() error = %v", err)
	}
	got, err := loaded.TopN(1, 2)
	if err != nil {
		t.Fatalf("loaded TopN() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded ranking = %v, want %v", got, want)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	if snap, ok := store.Load(context.Background()); ok || snap != nil {
		t.Error("Load() of missing file must report absent")
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.snapshot")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if snap, ok := store.Load(context.Background()); ok || snap != nil {
		t.Error("Load() of corrupt file must report absent, not fail")
	}
}

func TestStoreLoadTruncatedFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSnapshot(t)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.WriteFile(store.path, data[:len(data)/2], 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, ok := store.Load(ctx); ok {
		t.Error("Load() of truncated file must report absent")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testSnapshot(t)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := testSnapshot(t)
	second.Version = 9
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, ok := store.Load(ctx)
	if !ok {
		t.Fatal("Load() reported absent")
	}
	if loaded.Version != 9 {
		t.Errorf("version = %d, want 9 (latest save wins)", loaded.Version)
	}
}

func TestStoreMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok := store.Metadata(ctx); ok {
		t.Error("Metadata() of missing file must report absent")
	}

	snap := testSnapshot(t)
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	meta, ok := store.Metadata(ctx)
	if !ok {
		t.Fatal("Metadata() reported absent after Save()")
	}
	if meta.ModelVersion != snap.Version {
		t.Errorf("ModelVersion = %d, want %d", meta.ModelVersion, snap.Version)
	}
	if meta.ItemCount != snap.ItemCount() {
		t.Errorf("ItemCount = %d, want %d", meta.ItemCount, snap.ItemCount())
	}
	if meta.Checksum == "" {
		t.Error("Checksum is empty")
	}
}
