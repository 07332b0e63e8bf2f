// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory catalog store. It is used in tests and for
// ephemeral deployments that do not need a database file.
type Memory struct {
	mu           sync.RWMutex
	products     map[int]Product
	interactions []Interaction
	nextID       int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{products: make(map[int]Product)}
}

// NewMemoryWithProducts creates an in-memory store preloaded with the
// given products.
func NewMemoryWithProducts(products []Product) *Memory {
	m := NewMemory()
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

// ListProducts returns all products ordered by product ID.
func (m *Memory) ListProducts(_ context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// GetProduct resolves one product by ID.
func (m *Memory) GetProduct(_ context.Context, id int) (Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	return p, ok, nil
}

// ProductsByIDs resolves a batch of products, preserving order and
// skipping unknown IDs.
func (m *Memory) ProductsByIDs(_ context.Context, ids []int) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// ProductsByCategory returns all products in the given category, ordered
// by product ID.
func (m *Memory) ProductsByCategory(_ context.Context, category string) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var products []Product
	for _, p := range m.products {
		if p.Category == category {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// Stats summarizes product and interaction counts.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	categories := make(map[string]struct{})
	for _, p := range m.products {
		categories[p.Category] = struct{}{}
	}
	users := make(map[int]struct{})
	interacted := make(map[int]struct{})
	for _, in := range m.interactions {
		users[in.UserID] = struct{}{}
		interacted[in.ProductID] = struct{}{}
	}

	stats := Stats{
		TotalProducts:     len(m.products),
		TotalInteractions: len(m.interactions),
		UniqueUsers:       len(users),
		UniqueProducts:    len(interacted),
	}
	for category := range categories {
		stats.Categories = append(stats.Categories, category)
	}
	sort.Strings(stats.Categories)
	return stats, nil
}

// UpsertProduct inserts or replaces a product.
func (m *Memory) UpsertProduct(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[p.ID] = p
	return nil
}

// MostRecentInteraction returns the user's latest interaction.
func (m *Memory) MostRecentInteraction(_ context.Context, userID int) (Interaction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest Interaction
	found := false
	for _, in := range m.interactions {
		if in.UserID != userID {
			continue
		}
		if !found || in.CreatedAt.After(latest.CreatedAt) ||
			(in.CreatedAt.Equal(latest.CreatedAt) && in.ID > latest.ID) {
			latest = in
			found = true
		}
	}
	return latest, found, nil
}

// UserInteractions returns all of the user's interactions, oldest first.
func (m *Memory) UserInteractions(_ context.Context, userID int) ([]Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var interactions []Interaction
	for _, in := range m.interactions {
		if in.UserID == userID {
			interactions = append(interactions, in)
		}
	}
	return interactions, nil
}

// RecordInteraction appends a user-product event.
func (m *Memory) RecordInteraction(_ context.Context, userID, productID int, eventType string) (Interaction, error) {
	if !ValidEventType(eventType) {
		return Interaction{}, fmt.Errorf("record interaction: unknown event type %q", eventType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	in := Interaction{
		ID:        m.nextID,
		UserID:    userID,
		ProductID: productID,
		EventType: eventType,
		CreatedAt: time.Now().UTC(),
	}
	m.interactions = append(m.interactions, in)
	return in, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

// Ensure interface compliance.
var _ Store = (*Memory)(nil)
