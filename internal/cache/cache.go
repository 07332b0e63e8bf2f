// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package cache provides a thread-safe in-memory key/value cache with
// per-entry TTL. It memoizes expensive downstream results - typically a
// full per-user recommendation response - independent of the engine that
// produced them.
//
// Expiry is evaluated lazily at read time: a Get for an expired key
// removes the entry and reports a miss. There is no background sweeper.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// Entry represents a cached item with expiration.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	enabled atomic.Bool

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Stats is a point-in-time view of cache performance.
type Stats struct {
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	Evictions      int64 `json:"evictions"`
	TotalEntries   int   `json:"total_entries"`
	ExpiredEntries int   `json:"expired_entries"`
	ActiveEntries  int   `json:"active_entries"`
	Enabled        bool  `json:"enabled"`
}

// New creates a cache with the given default TTL. When disabled, Get
// always reports a miss and Set is a no-op; Delete and Clear still work.
func New(defaultTTL time.Duration, enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     defaultTTL,
	}
	c.enabled.Store(enabled)
	return c
}

// Get retrieves a value by key. An entry read past its expiry is removed
// and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	if !c.enabled.Load() {
		return nil, false
	}

	c.mu.Lock()
	entry, exists := c.entries[key]
	if exists && time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		c.evictions.Add(1)
		return nil, false
	}
	c.mu.Unlock()

	if !exists {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL. A TTL <= 0 means the
// entry expires immediately: the next read is a miss, not "never
// expires".
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if !c.enabled.Load() {
		return
	}

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Delete removes a key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	_, present := c.entries[key]
	if present {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if present {
		c.evictions.Add(1)
	}
	return present
}

// Clear removes all entries in one operation.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.evictions.Add(evicted)
}

// SetEnabled flips the global cache switch.
func (c *Cache) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool {
	return c.enabled.Load()
}

// Stats returns a snapshot of cache statistics. Active entries are those
// not yet past their expiry; expired entries linger only until the next
// read touches them.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	total := len(c.entries)
	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}
	c.mu.Unlock()

	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Evictions:      c.evictions.Load(),
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
		Enabled:        c.enabled.Load(),
	}
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

// GenerateKey creates a cache key from a purpose tag and parameters.
func GenerateKey(purpose string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", purpose, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", purpose, hash[:16])
}
