// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import "errors"

// Sentinel errors for the engine's failure taxonomy. Callers distinguish
// them with errors.Is; the HTTP layer maps each kind to a status code.
var (
	// ErrNotReady indicates no successful fit has happened yet. Every
	// query returns it until a fit (or retrain) succeeds.
	ErrNotReady = errors.New("recommendation engine not ready")

	// ErrNotFound indicates the queried item ID is not part of the
	// fitted model. This is an expected outcome, not an anomaly.
	ErrNotFound = errors.New("item not found in fitted model")

	// ErrNoData indicates the catalog yielded no items at fit time.
	ErrNoData = errors.New("no catalog items to fit")
)
