// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// DB is a DuckDB-backed catalog store.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id  INTEGER PRIMARY KEY,
	name        VARCHAR NOT NULL,
	category    VARCHAR NOT NULL,
	description VARCHAR NOT NULL DEFAULT ''
);

CREATE SEQUENCE IF NOT EXISTS interactions_id_seq;

CREATE TABLE IF NOT EXISTS interactions (
	id         BIGINT PRIMARY KEY DEFAULT nextval('interactions_id_seq'),
	user_id    INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	event_type VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
);

CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions (user_id, created_at);
`

// Open creates a DuckDB catalog store and initializes the schema.
// An empty path opens an in-memory database.
//
//nolint:gocritic // logger passed by value per zerolog convention
func Open(path string, logger zerolog.Logger) (*DB, error) {
	if path != "" {
		// Ensure parent directory exists for the database file.
		// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create catalog directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	// The embedded database shares one process; a small pool is plenty.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "catalog").Logger(),
	}

	if _, err := conn.Exec(schema); err != nil {
		if cerr := conn.Close(); cerr != nil {
			db.logger.Warn().Err(cerr).Msg("Failed to close database after schema error")
		}
		return nil, fmt.Errorf("initialize catalog schema: %w", err)
	}

	db.logger.Info().Str("path", path).Msg("Catalog database ready")
	return db, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// ListProducts returns all products ordered by product ID.
func (d *DB) ListProducts(ctx context.Context) ([]Product, error) {
	return d.queryProducts(ctx,
		`SELECT product_id, name, category, description FROM products ORDER BY product_id`)
}

// ProductsByCategory returns all products in the given category, ordered
// by product ID.
func (d *DB) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	return d.queryProducts(ctx,
		`SELECT product_id, name, category, description FROM products
		 WHERE category = ? ORDER BY product_id`, category)
}

func (d *DB) queryProducts(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			d.logger.Warn().Err(cerr).Msg("Failed to close product rows")
		}
	}()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Stats summarizes product and interaction counts.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products`).Scan(&stats.TotalProducts); err != nil {
		return Stats{}, fmt.Errorf("count products: %w", err)
	}

	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT product_id) FROM interactions`).
		Scan(&stats.TotalInteractions, &stats.UniqueUsers, &stats.UniqueProducts); err != nil {
		return Stats{}, fmt.Errorf("count interactions: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return Stats{}, fmt.Errorf("query categories: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			d.logger.Warn().Err(cerr).Msg("Failed to close category rows")
		}
	}()

	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return Stats{}, fmt.Errorf("scan category: %w", err)
		}
		stats.Categories = append(stats.Categories, category)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate categories: %w", err)
	}
	return stats, nil
}

// GetProduct resolves one product by ID.
func (d *DB) GetProduct(ctx context.Context, id int) (Product, bool, error) {
	var p Product
	err := d.conn.QueryRowContext(ctx,
		`SELECT product_id, name, category, description FROM products WHERE product_id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, true, nil
}

// ProductsByIDs resolves a batch of products, preserving the order of the
// given IDs. Unknown IDs are skipped.
func (d *DB) ProductsByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	//nolint:gosec // placeholders are generated, values are bound
	query := fmt.Sprintf(
		`SELECT product_id, name, category, description FROM products WHERE product_id IN (%s)`,
		placeholders)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			d.logger.Warn().Err(cerr).Msg("Failed to close product rows")
		}
	}()

	byID := make(map[int]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	ordered := make([]Product, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// UpsertProduct inserts or replaces a product.
func (d *DB) UpsertProduct(ctx context.Context, p Product) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO products (product_id, name, category, description) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Description)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}

// MostRecentInteraction returns the user's latest interaction.
func (d *DB) MostRecentInteraction(ctx context.Context, userID int) (Interaction, bool, error) {
	var in Interaction
	err := d.conn.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, event_type, created_at
		 FROM interactions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID).
		Scan(&in.ID, &in.UserID, &in.ProductID, &in.EventType, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Interaction{}, false, nil
	}
	if err != nil {
		return Interaction{}, false, fmt.Errorf("query interactions for user %d: %w", userID, err)
	}
	return in, true, nil
}

// UserInteractions returns all of the user's interactions, oldest first.
func (d *DB) UserInteractions(ctx context.Context, userID int) ([]Interaction, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, user_id, product_id, event_type, created_at
		 FROM interactions WHERE user_id = ?
		 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interactions for user %d: %w", userID, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			d.logger.Warn().Err(cerr).Msg("Failed to close interaction rows")
		}
	}()

	var interactions []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ProductID, &in.EventType, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return interactions, nil
}

// RecordInteraction appends a user-product event.
func (d *DB) RecordInteraction(ctx context.Context, userID, productID int, eventType string) (Interaction, error) {
	if !ValidEventType(eventType) {
		return Interaction{}, fmt.Errorf("record interaction: unknown event type %q", eventType)
	}

	var in Interaction
	err := d.conn.QueryRowContext(ctx,
		`INSERT INTO interactions (user_id, product_id, event_type)
		 VALUES (?, ?, ?)
		 RETURNING id, user_id, product_id, event_type, created_at`,
		userID, productID, eventType).
		Scan(&in.ID, &in.UserID, &in.ProductID, &in.EventType, &in.CreatedAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("record interaction: %w", err)
	}
	return in, nil
}

// SeedDemoData loads a small demo catalog when the products table is
// empty. It is a no-op on a populated catalog.
func (d *DB) SeedDemoData(ctx context.Context) error {
	var count int
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range DemoProducts() {
		if err := d.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}
	d.logger.Info().Int("products", len(DemoProducts())).Msg("Seeded demo catalog")
	return nil
}

// DemoProducts is the built-in demo catalog.
func DemoProducts() []Product {
	return []Product{
		{
			ID:          1,
			Name:        "Wireless Bluetooth Headphones",
			Category:    "Electronics",
			Description: "Premium wireless headphones with active noise cancellation, deep bass and a 30 hour battery",
		},
		{
			ID:          2,
			Name:        "Portable Bluetooth Speaker",
			Category:    "Electronics",
			Description: "Compact waterproof wireless speaker with rich bass and a 12 hour battery",
		},
		{
			ID:          3,
			Name:        "Running Shoes",
			Category:    "Sports",
			Description: "Lightweight breathable running shoes with responsive cushioning for daily training",
		},
		{
			ID:          4,
			Name:        "Organic Cotton T-Shirt",
			Category:    "Clothing",
			Description: "Soft organic cotton t-shirt with a classic fit, available in several colors",
		},
		{
			ID:          5,
			Name:        "Stainless Steel Water Bottle",
			Category:    "Home & Kitchen",
			Description: "Insulated stainless steel bottle that keeps drinks cold for 24 hours",
		},
	}
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.conn.PingContext(ctx)
}

// Ensure interface compliance.
var _ Store = (*DB)(nil)
