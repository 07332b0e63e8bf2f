// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package recommend implements the content-based recommendation engine.
//
// The engine turns each product's textual fields into a weighted term
// vector (TF-IDF over unigrams and bigrams), computes all-pairs cosine
// similarity over the catalog, and answers "more like this" queries by
// ranking the precomputed similarity rows.
//
// # Model Lifecycle
//
// The fitted model (item list, vocabulary, term-vector matrix, similarity
// matrix) is an immutable snapshot. The engine builds it lazily on first
// use: a persisted snapshot is restored if one exists, otherwise the
// catalog is pulled and fitted from scratch. Concurrent first-use callers
// share a single in-flight fit; none of them pays the O(n²) similarity
// cost twice. Retraining produces a fresh snapshot and publishes it with
// an atomic pointer swap, so in-flight queries always observe a complete,
// consistent model.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Queries take no locks
// on the hot path; they read the current snapshot pointer once and work
// entirely on immutable data.
package recommend
