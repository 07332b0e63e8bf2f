// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package cache

import (
	"strings"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("key", "value")
	got, found := c.Get("key")
	if !found {
		t.Fatal("Get() missed a freshly set key")
	}
	if got != "value" {
		t.Errorf("Get() = %v, want %q", got, "value")
	}

	if _, found := c.Get("absent"); found {
		t.Error("Get() hit an absent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Minute, true)

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	if _, found := c.Get("short"); !found {
		t.Fatal("entry expired before its TTL")
	}

	time.Sleep(20 * time.Millisecond)
	if _, found := c.Get("short"); found {
		t.Error("entry survived past its TTL")
	}

	// The expired read evicts lazily.
	stats := c.Stats()
	if stats.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0 after lazy eviction", stats.TotalEntries)
	}
	if stats.Evictions == 0 {
		t.Error("Evictions = 0, want expired read counted")
	}
}

func TestCacheZeroTTLExpiresImmediately(t *testing.T) {
	c := New(time.Minute, true)

	c.SetWithTTL("instant", "value", 0)
	if _, found := c.Get("instant"); found {
		t.Error("zero TTL entry must expire immediately, not live forever")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("key", "value")
	if !c.Delete("key") {
		t.Error("Delete() = false for a present key")
	}
	if c.Delete("key") {
		t.Error("Delete() = true for an already-deleted key")
	}
	if _, found := c.Get("key"); found {
		t.Error("Get() hit a deleted key")
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if stats := c.Stats(); stats.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0 after Clear()", stats.TotalEntries)
	}
}

func TestCacheDisabled(t *testing.T) {
	c := New(time.Minute, false)

	c.Set("key", "value")
	if _, found := c.Get("key"); found {
		t.Error("disabled cache returned a hit")
	}

	// Disabled reads must not move the counters.
	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("stats = %+v, want untouched counters while disabled", stats)
	}
	if stats.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestCacheEnableDisableSwitch(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("key", "value")
	c.SetEnabled(false)

	if _, found := c.Get("key"); found {
		t.Error("disabled cache served a stored entry")
	}

	// Delete still works while disabled, for invalidation.
	if !c.Delete("key") {
		t.Error("Delete() = false while disabled, want true for stored entry")
	}

	c.SetEnabled(true)
	if _, found := c.Get("key"); found {
		t.Error("re-enabled cache served an entry deleted while disabled")
	}
}

func TestCacheStatsAndHitRate(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("key", "value")
	c.Get("key")    // hit
	c.Get("absent") // miss

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.ActiveEntries != 1 {
		t.Errorf("ActiveEntries = %d, want 1", stats.ActiveEntries)
	}

	if rate := c.HitRate(); rate != 50.0 {
		t.Errorf("HitRate() = %f, want 50.0", rate)
	}
}

func TestCacheHitRateEmpty(t *testing.T) {
	c := New(time.Minute, true)
	if rate := c.HitRate(); rate != 0.0 {
		t.Errorf("HitRate() = %f, want 0.0 with no traffic", rate)
	}
}

func TestCacheStatsCountsExpired(t *testing.T) {
	c := New(time.Minute, true)

	c.Set("fresh", 1)
	c.SetWithTTL("stale", 2, -time.Second)

	stats := c.Stats()
	if stats.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", stats.TotalEntries)
	}
	if stats.ExpiredEntries != 1 {
		t.Errorf("ExpiredEntries = %d, want 1", stats.ExpiredEntries)
	}
	if stats.ActiveEntries != 1 {
		t.Errorf("ActiveEntries = %d, want 1", stats.ActiveEntries)
	}
}

func TestGenerateKey(t *testing.T) {
	params := map[string]interface{}{"product_id": 1, "n": 3}

	key1 := GenerateKey("recommendations_product", params)
	key2 := GenerateKey("recommendations_product", params)
	if key1 != key2 {
		t.Errorf("GenerateKey() not deterministic: %q vs %q", key1, key2)
	}

	if !strings.HasPrefix(key1, "recommendations_product:") {
		t.Errorf("key %q missing purpose prefix", key1)
	}

	other := GenerateKey("recommendations_product", map[string]interface{}{"product_id": 2, "n": 3})
	if key1 == other {
		t.Error("different parameters produced the same key")
	}
}
