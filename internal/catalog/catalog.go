// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package catalog owns product and interaction storage.
//
// The recommendation engine treats the catalog as an external
// collaborator: it pulls the full item set at fit time and never writes.
// The HTTP layer additionally records user-product interaction events
// here, which drive the "most recent item the user touched" lookup.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/mercatus-labs/mercatus/internal/recommend"
)

// Interaction event types.
const (
	EventViewed    = "viewed"
	EventClicked   = "clicked"
	EventPurchased = "purchased"
)

// ValidEventType reports whether the given event type is known.
func ValidEventType(eventType string) bool {
	switch eventType {
	case EventViewed, EventClicked, EventPurchased:
		return true
	}
	return false
}

// Product is a catalog item.
type Product struct {
	// ID is the unique product identifier.
	ID int `json:"product_id"`

	// Name is the product name.
	Name string `json:"name"`

	// Category is the product category.
	Category string `json:"category"`

	// Description is the free-text description. May be empty.
	Description string `json:"description,omitempty"`
}

// Interaction is one user-product event.
type Interaction struct {
	// ID is the interaction identifier.
	ID int64 `json:"id"`

	// UserID identifies the user.
	UserID int `json:"user_id"`

	// ProductID identifies the product.
	ProductID int `json:"product_id"`

	// EventType is one of viewed, clicked, purchased.
	EventType string `json:"event_type"`

	// CreatedAt is when the event occurred.
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes the catalog and its interaction history.
type Stats struct {
	// TotalProducts is the number of products in the catalog.
	TotalProducts int `json:"total_products"`

	// TotalInteractions is the number of recorded events.
	TotalInteractions int `json:"total_interactions"`

	// UniqueUsers is the number of distinct users with events.
	UniqueUsers int `json:"unique_users"`

	// UniqueProducts is the number of distinct products with events.
	UniqueProducts int `json:"unique_products"`

	// Categories lists the distinct product categories, sorted.
	Categories []string `json:"categories"`
}

// Store is the catalog persistence interface.
type Store interface {
	// ListProducts returns all products ordered by product ID.
	ListProducts(ctx context.Context) ([]Product, error)

	// GetProduct resolves one product. The second return value is false
	// when the product does not exist.
	GetProduct(ctx context.Context, id int) (Product, bool, error)

	// ProductsByIDs resolves a batch of products, preserving the order
	// of the given IDs. Unknown IDs are skipped.
	ProductsByIDs(ctx context.Context, ids []int) ([]Product, error)

	// ProductsByCategory returns all products in the given category,
	// ordered by product ID. Empty when the category is unknown.
	ProductsByCategory(ctx context.Context, category string) ([]Product, error)

	// Stats summarizes product and interaction counts.
	Stats(ctx context.Context) (Stats, error)

	// MostRecentInteraction returns the user's latest interaction. The
	// second return value is false when the user has none.
	MostRecentInteraction(ctx context.Context, userID int) (Interaction, bool, error)

	// UserInteractions returns all of the user's interactions, oldest
	// first.
	UserInteractions(ctx context.Context, userID int) ([]Interaction, error)

	// RecordInteraction appends a user-product event.
	RecordInteraction(ctx context.Context, userID, productID int, eventType string) (Interaction, error)

	// Close releases store resources.
	Close() error
}

// Provider adapts a Store to the recommendation engine's catalog view.
type Provider struct {
	store Store
}

// NewProvider creates a catalog provider for the engine.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// ListItems returns all products as engine items, in product ID order.
func (p *Provider) ListItems(ctx context.Context) ([]recommend.Item, error) {
	products, err := p.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]recommend.Item, len(products))
	for i, prod := range products {
		items[i] = recommend.Item{
			ID:          prod.ID,
			Name:        prod.Name,
			Category:    prod.Category,
			Description: prod.Description,
		}
	}
	return items, nil
}

// Ensure interface compliance.
var _ recommend.CatalogStore = (*Provider)(nil)
