// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeCatalog is an in-memory CatalogStore that counts pulls.
type fakeCatalog struct {
	mu    sync.Mutex
	items []Item
	err   error
	delay time.Duration
	calls int
}

func (f *fakeCatalog) ListItems(ctx context.Context) ([]Item, error) {
	f.mu.Lock()
	f.calls++
	items, err, delay := f.items, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCatalog) setItems(items []Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

// fakeModelStore is an in-memory ModelStore.
type fakeModelStore struct {
	mu       sync.Mutex
	snapshot *Snapshot
	saveErr  error
	saves    int
}

func (f *fakeModelStore) Save(_ context.Context, snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = snap
	return nil
}

func (f *fakeModelStore) Load(_ context.Context) (*Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return nil, false
	}
	return f.snapshot, true
}

func testItems() []Item {
	return []Item{
		{ID: 1, Name: "Wireless Bluetooth Headphones", Category: "Electronics",
			Description: "Premium wireless headphones with noise cancellation, deep bass and a 30 hour battery"},
		{ID: 2, Name: "Portable Bluetooth Speaker", Category: "Electronics",
			Description: "Compact waterproof wireless speaker with rich bass and a 12 hour battery"},
		{ID: 3, Name: "Running Shoes", Category: "Sports",
			Description: "Lightweight breathable running shoes with responsive cushioning"},
		{ID: 4, Name: "Organic Cotton T-Shirt", Category: "Clothing",
			Description: "Soft organic cotton t-shirt with a classic fit"},
		{ID: 5, Name: "Stainless Steel Water Bottle", Category: "Home & Kitchen",
			Description: "Insulated stainless steel bottle that keeps drinks cold"},
	}
}

func newTestEngine(t *testing.T, catalog CatalogStore, store ModelStore) *Engine {
	t.Helper()
	engine, err := NewEngine(nil, catalog, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestEngineFirstQueryTrains(t *testing.T) {
	catalog := &fakeCatalog{items: testItems()}
	engine := newTestEngine(t, catalog, nil)

	recs, err := engine.GetRecommendations(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}

	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	// The speaker shares wireless, bluetooth, bass and battery
	// vocabulary with the headphones; nothing else comes close.
	if recs[0] != 2 {
		t.Errorf("top recommendation = %d, want 2", recs[0])
	}
	for _, id := range recs {
		if id == 1 {
			t.Error("source item must not recommend itself")
		}
	}

	if engine.State() != StateReady {
		t.Errorf("state = %s, want %s", engine.State(), StateReady)
	}
	if got := engine.Status().ModelVersion; got != 1 {
		t.Errorf("model version = %d, want 1", got)
	}
	if got := catalog.callCount(); got != 1 {
		t.Errorf("catalog pulls = %d, want 1", got)
	}
}

func TestEngineEmptyCatalogFails(t *testing.T) {
	catalog := &fakeCatalog{}
	engine := newTestEngine(t, catalog, nil)

	_, err := engine.GetRecommendations(context.Background(), 1, 3)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("first query error = %v, want ErrNotReady", err)
	}
	if engine.State() != StateFailed {
		t.Errorf("state = %s, want %s", engine.State(), StateFailed)
	}

	// Subsequent queries fail fast without touching the catalog again.
	pulls := catalog.callCount()
	_, err = engine.GetRecommendations(context.Background(), 1, 3)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("second query error = %v, want ErrNotReady", err)
	}
	if got := catalog.callCount(); got != pulls {
		t.Errorf("catalog pulls = %d, want %d (no automatic retry)", got, pulls)
	}
}

func TestEngineRetrainAfterFailure(t *testing.T) {
	catalog := &fakeCatalog{}
	engine := newTestEngine(t, catalog, nil)

	if _, err := engine.GetRecommendations(context.Background(), 1, 3); !errors.Is(err, ErrNotReady) {
		t.Fatalf("query error = %v, want ErrNotReady", err)
	}

	catalog.setItems(testItems())
	if err := engine.Retrain(context.Background()); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}

	if engine.State() != StateReady {
		t.Errorf("state = %s, want %s", engine.State(), StateReady)
	}
	if _, err := engine.GetRecommendations(context.Background(), 1, 3); err != nil {
		t.Errorf("query after retrain error = %v", err)
	}
}

func TestEngineUnknownItem(t *testing.T) {
	engine := newTestEngine(t, &fakeCatalog{items: testItems()}, nil)

	_, err := engine.GetRecommendations(context.Background(), 999, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestEngineRestoreFromStore(t *testing.T) {
	// Train one engine to produce a persisted snapshot.
	store := &fakeModelStore{}
	seed := newTestEngine(t, &fakeCatalog{items: testItems()}, store)
	if err := seed.Retrain(context.Background()); err != nil {
		t.Fatalf("seed Retrain() error = %v", err)
	}

	// A fresh engine restores it without touching the catalog.
	catalog := &fakeCatalog{items: testItems()}
	engine := newTestEngine(t, catalog, store)

	recs, err := engine.GetRecommendations(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}

	if got := catalog.callCount(); got != 0 {
		t.Errorf("catalog pulls = %d, want 0 after restore", got)
	}

	status := engine.Status()
	if !status.RestoredFromDisk {
		t.Error("RestoredFromDisk = false, want true")
	}
	if status.ModelVersion != 1 {
		t.Errorf("model version = %d, want 1", status.ModelVersion)
	}
}

func TestEngineRetrainReplacesSnapshot(t *testing.T) {
	catalog := &fakeCatalog{items: testItems()}
	engine := newTestEngine(t, catalog, nil)

	if err := engine.Retrain(context.Background()); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}

	catalog.setItems(testItems()[:3])
	if err := engine.Retrain(context.Background()); err != nil {
		t.Fatalf("second Retrain() error = %v", err)
	}

	status := engine.Status()
	if status.ItemCount != 3 {
		t.Errorf("item count = %d, want 3", status.ItemCount)
	}
	if status.ModelVersion != 2 {
		t.Errorf("model version = %d, want 2", status.ModelVersion)
	}
}

func TestEngineFailedRetrainKeepsOldModel(t *testing.T) {
	catalog := &fakeCatalog{items: testItems()}
	engine := newTestEngine(t, catalog, nil)

	if err := engine.Retrain(context.Background()); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}

	catalog.setItems(nil)
	if err := engine.Retrain(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("Retrain() on empty catalog error = %v, want ErrNoData", err)
	}

	// The previous snapshot keeps serving.
	if engine.State() != StateReady {
		t.Errorf("state = %s, want %s", engine.State(), StateReady)
	}
	if _, err := engine.GetRecommendations(context.Background(), 1, 3); err != nil {
		t.Errorf("query after failed retrain error = %v", err)
	}
}

func TestEngineSaveIsBestEffort(t *testing.T) {
	store := &fakeModelStore{saveErr: errors.New("disk full")}
	engine := newTestEngine(t, &fakeCatalog{items: testItems()}, store)

	if err := engine.Retrain(context.Background()); err != nil {
		t.Fatalf("Retrain() error = %v, want nil despite save failure", err)
	}
	if engine.State() != StateReady {
		t.Errorf("state = %s, want %s", engine.State(), StateReady)
	}
}

func TestEngineSingleflightInit(t *testing.T) {
	catalog := &fakeCatalog{items: testItems(), delay: 50 * time.Millisecond}
	engine := newTestEngine(t, catalog, nil)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.GetRecommendations(context.Background(), 1, 3)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d error = %v", i, err)
		}
	}
	if got := catalog.callCount(); got != 1 {
		t.Errorf("catalog pulls = %d, want 1 (shared fit)", got)
	}
}

func TestEngineWaiterCancellation(t *testing.T) {
	catalog := &fakeCatalog{items: testItems(), delay: 200 * time.Millisecond}
	engine := newTestEngine(t, catalog, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := engine.GetRecommendations(ctx, 1, 3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}

	// The fit continues without the waiter; the engine becomes ready.
	deadline := time.Now().Add(2 * time.Second)
	for engine.State() != StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("engine never became ready, state = %s", engine.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := engine.GetRecommendations(context.Background(), 1, 3); err != nil {
		t.Errorf("query after detached fit error = %v", err)
	}
}
