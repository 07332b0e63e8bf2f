// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mercatus-labs/mercatus/internal/catalog"
	"github.com/mercatus-labs/mercatus/internal/logging"
)

// APIResponse is the envelope for every API response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a structured error payload.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RecommendedProduct is one ranked recommendation.
type RecommendedProduct struct {
	catalog.Product
	Score float64 `json:"score"`
}

// RecommendationsResponse lists recommendations for a source product.
type RecommendationsResponse struct {
	Source          catalog.Product      `json:"source"`
	Recommendations []RecommendedProduct `json:"recommendations"`
	Count           int                  `json:"count"`
}

// ExplainedProduct is a recommendation with a generated reason.
type ExplainedProduct struct {
	catalog.Product
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// UserRecommendationsResponse lists explained recommendations for a
// user, based on their most recent interaction.
type UserRecommendationsResponse struct {
	UserID          int                `json:"user_id"`
	BasedOn         catalog.Product    `json:"based_on"`
	Recommendations []ExplainedProduct `json:"recommendations"`
	Count           int                `json:"count"`
}

// UserInteractionsResponse lists a user's full interaction history.
type UserInteractionsResponse struct {
	UserID       int                   `json:"user_id"`
	Interactions []catalog.Interaction `json:"interactions"`
	Count        int                   `json:"count"`
}

// UserStatsResponse summarizes a user's interaction history.
type UserStatsResponse struct {
	UserID            int            `json:"user_id"`
	TotalInteractions int            `json:"total_interactions"`
	UniqueProducts    int            `json:"unique_products"`
	EventTypes        map[string]int `json:"event_types"`
	FirstInteraction  time.Time      `json:"first_interaction"`
	LastInteraction   time.Time      `json:"last_interaction"`
}

// sanitizeLogValue removes control characters from strings to prevent
// log injection through attacker-controlled values.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData sends a success envelope around the given payload.
func respondData(w http.ResponseWriter, status int, data interface{}, meta Metadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	respondJSON(w, status, &APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	respondJSON(w, status, &APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}
