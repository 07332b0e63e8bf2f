// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mercatus-labs/mercatus/internal/cache"
	"github.com/mercatus-labs/mercatus/internal/catalog"
	"github.com/mercatus-labs/mercatus/internal/config"
	"github.com/mercatus-labs/mercatus/internal/explain"
	"github.com/mercatus-labs/mercatus/internal/metrics"
	"github.com/mercatus-labs/mercatus/internal/recommend"
)

// Handler implements the HTTP API.
type Handler struct {
	engine    *recommend.Engine
	store     catalog.Store
	explainer explain.Explainer
	cache     *cache.Cache
	cfg       *config.Config
	logger    zerolog.Logger
}

// NewHandler creates the API handler.
//
//nolint:gocritic // logger passed by value per zerolog convention
func NewHandler(
	engine *recommend.Engine,
	store catalog.Store,
	explainer explain.Explainer,
	responseCache *cache.Cache,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		engine:    engine,
		store:     store,
		explainer: explainer,
		cache:     responseCache,
		cfg:       cfg,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Health reports service and model health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()

	payload := map[string]interface{}{
		"status":        "ok",
		"model_state":   status.State,
		"model_version": status.ModelVersion,
		"item_count":    status.ItemCount,
		"cache_enabled": h.cache.Enabled(),
	}
	if status.State == recommend.StateFailed.String() {
		payload["status"] = "degraded"
		payload["last_error"] = status.LastError
	}

	respondData(w, http.StatusOK, payload, Metadata{})
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list products", err)
		return
	}
	respondData(w, http.StatusOK, products, Metadata{})
}

// GetProduct returns one product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.intParam(w, r, "id")
	if !ok {
		return
	}

	product, found, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND",
			fmt.Sprintf("Product %d not found", id), nil)
		return
	}
	respondData(w, http.StatusOK, product, Metadata{})
}

// ProductsByCategory returns all products in one category.
func (h *Handler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	products, err := h.store.ProductsByCategory(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list products", err)
		return
	}
	if len(products) == 0 {
		h.logger.Warn().Str("category", sanitizeLogValue(category)).Msg("Unknown product category requested")
		respondError(w, http.StatusNotFound, "CATEGORY_NOT_FOUND",
			fmt.Sprintf("No products found in category: %s", category), nil)
		return
	}
	respondData(w, http.StatusOK, products, Metadata{})
}

// ProductStats reports catalog and interaction counts.
func (h *Handler) ProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load statistics", err)
		return
	}
	respondData(w, http.StatusOK, stats, Metadata{})
}

// ProductRecommendations returns products similar to the given one.
func (h *Handler) ProductRecommendations(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.intParam(w, r, "id")
	if !ok {
		return
	}
	n, ok := h.countParam(w, r)
	if !ok {
		return
	}

	cacheKey := cache.GenerateKey("recommendations_product", map[string]interface{}{
		"product_id": productID,
		"n":          n,
	})
	if cached, found := h.cache.Get(cacheKey); found {
		if resp, isResp := cached.(*RecommendationsResponse); isResp {
			metrics.CacheHits.Inc()
			respondData(w, http.StatusOK, resp, Metadata{Cached: true})
			return
		}
	}
	// A found-but-mismatched entry counts as a miss and gets rebuilt.
	metrics.CacheMisses.Inc()

	start := time.Now()
	resp, err := h.buildRecommendations(r, productID, n)
	if err != nil {
		h.respondRecommendError(w, productID, err)
		return
	}
	metrics.RecommendRequests.WithLabelValues("ok").Inc()

	h.cache.Set(cacheKey, resp)
	respondData(w, http.StatusOK, resp, Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// buildRecommendations queries the engine and joins scores back to
// catalog products.
func (h *Handler) buildRecommendations(r *http.Request, productID, n int) (*RecommendationsResponse, error) {
	ctx := r.Context()

	scored, err := h.engine.GetRecommendationsWithScores(ctx, productID, n)
	if err != nil {
		return nil, err
	}

	source, found, err := h.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load source product: %w", err)
	}
	if !found {
		// The model knows the item but the catalog no longer does; the
		// model is stale until the next retrain.
		return nil, fmt.Errorf("source product %d: %w", productID, recommend.ErrNotFound)
	}

	ids := make([]int, len(scored))
	scoreByID := make(map[int]float64, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
		scoreByID[s.ID] = s.Score
	}

	products, err := h.store.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommended products: %w", err)
	}

	recs := make([]RecommendedProduct, len(products))
	for i, p := range products {
		recs[i] = RecommendedProduct{Product: p, Score: scoreByID[p.ID]}
	}

	return &RecommendationsResponse{
		Source:          source,
		Recommendations: recs,
		Count:           len(recs),
	}, nil
}

// UserRecommendations returns explained recommendations based on the
// user's most recent interaction.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.intParam(w, r, "id")
	if !ok {
		return
	}
	n, ok := h.countParam(w, r)
	if !ok {
		return
	}

	cacheKey := userRecommendationsKey(userID)
	if cached, found := h.cache.Get(cacheKey); found {
		if resp, isResp := cached.(*UserRecommendationsResponse); isResp {
			metrics.CacheHits.Inc()
			respondData(w, http.StatusOK, resp, Metadata{Cached: true})
			return
		}
	}
	metrics.CacheMisses.Inc()

	ctx := r.Context()
	start := time.Now()

	interaction, found, err := h.store.MostRecentInteraction(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load interactions", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "NO_INTERACTIONS",
			fmt.Sprintf("No interactions found for user %d", userID), nil)
		return
	}

	base, err := h.buildRecommendations(r, interaction.ProductID, n)
	if err != nil {
		h.respondRecommendError(w, interaction.ProductID, err)
		return
	}
	metrics.RecommendRequests.WithLabelValues("ok").Inc()

	explained := make([]ExplainedProduct, len(base.Recommendations))
	for i, rec := range base.Recommendations {
		explained[i] = ExplainedProduct{
			Product:     rec.Product,
			Score:       rec.Score,
			Explanation: h.explainer.Explain(ctx, base.Source, rec.Product),
		}
	}

	resp := &UserRecommendationsResponse{
		UserID:          userID,
		BasedOn:         base.Source,
		Recommendations: explained,
		Count:           len(explained),
	}

	h.cache.Set(cacheKey, resp)
	respondData(w, http.StatusOK, resp, Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// UserInteractions returns a user's full interaction history.
func (h *Handler) UserInteractions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.intParam(w, r, "id")
	if !ok {
		return
	}

	interactions, err := h.store.UserInteractions(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load interactions", err)
		return
	}
	if len(interactions) == 0 {
		respondError(w, http.StatusNotFound, "NO_INTERACTIONS",
			fmt.Sprintf("No interactions found for user %d", userID), nil)
		return
	}

	respondData(w, http.StatusOK, &UserInteractionsResponse{
		UserID:       userID,
		Interactions: interactions,
		Count:        len(interactions),
	}, Metadata{})
}

// UserStats summarizes a user's interaction history.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.intParam(w, r, "id")
	if !ok {
		return
	}

	interactions, err := h.store.UserInteractions(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load interactions", err)
		return
	}
	if len(interactions) == 0 {
		respondError(w, http.StatusNotFound, "NO_INTERACTIONS",
			fmt.Sprintf("No interactions found for user %d", userID), nil)
		return
	}

	stats := &UserStatsResponse{
		UserID:            userID,
		TotalInteractions: len(interactions),
		EventTypes:        make(map[string]int),
		FirstInteraction:  interactions[0].CreatedAt,
		LastInteraction:   interactions[0].CreatedAt,
	}
	products := make(map[int]struct{})
	for _, in := range interactions {
		products[in.ProductID] = struct{}{}
		stats.EventTypes[in.EventType]++
		if in.CreatedAt.Before(stats.FirstInteraction) {
			stats.FirstInteraction = in.CreatedAt
		}
		if in.CreatedAt.After(stats.LastInteraction) {
			stats.LastInteraction = in.CreatedAt
		}
	}
	stats.UniqueProducts = len(products)

	respondData(w, http.StatusOK, stats, Metadata{})
}

// InteractionRequest is the POST /interactions payload.
type InteractionRequest struct {
	UserID    int    `json:"user_id" validate:"required,min=1"`
	ProductID int    `json:"product_id" validate:"required,min=1"`
	EventType string `json:"event_type" validate:"required,oneof=viewed clicked purchased"`
}

// CreateInteraction records a user-product event and invalidates the
// user's cached recommendations.
func (h *Handler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	ctx := r.Context()
	_, found, err := h.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND",
			fmt.Sprintf("Product %d not found", req.ProductID), nil)
		return
	}

	interaction, err := h.store.RecordInteraction(ctx, req.UserID, req.ProductID, req.EventType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record interaction", err)
		return
	}

	// New interactions change what the user's recommendations are
	// based on.
	h.cache.Delete(userRecommendationsKey(req.UserID))

	respondData(w, http.StatusCreated, interaction, Metadata{})
}

// Retrain rebuilds the model from the current catalog and clears the
// response cache.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.engine.Retrain(r.Context()); err != nil {
		h.respondRecommendError(w, 0, err)
		return
	}

	h.cache.Clear()
	status := h.engine.Status()

	respondData(w, http.StatusOK, map[string]interface{}{
		"model_state":   status.State,
		"model_version": status.ModelVersion,
		"item_count":    status.ItemCount,
	}, Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// ModelStatus reports the engine's training state and model metadata.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.engine.Status(), Metadata{})
}

// CacheStats reports response cache statistics.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	respondData(w, http.StatusOK, map[string]interface{}{
		"stats":    stats,
		"hit_rate": h.cache.HitRate(),
	}, Metadata{})
}

// CacheClear empties the response cache.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	respondData(w, http.StatusOK, map[string]interface{}{"cleared": true}, Metadata{})
}

// UserCacheClear drops one user's cached recommendations.
func (h *Handler) UserCacheClear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.intParam(w, r, "user_id")
	if !ok {
		return
	}

	cleared := h.cache.Delete(userRecommendationsKey(userID))
	respondData(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"cleared": cleared,
	}, Metadata{})
}

// intParam parses a positive integer URL parameter, responding with 400
// on failure.
func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("Parameter %q must be a positive integer", name), nil)
		return 0, false
	}
	return value, true
}

// countParam parses the optional n query parameter, applying the
// configured default and upper bound.
func (h *Handler) countParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return h.cfg.Recommend.DefaultN, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Parameter \"n\" must be a positive integer", nil)
		return 0, false
	}
	if n > h.cfg.Recommend.MaxN {
		n = h.cfg.Recommend.MaxN
	}
	return n, true
}

// respondRecommendError maps engine errors to HTTP statuses.
func (h *Handler) respondRecommendError(w http.ResponseWriter, productID int, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		metrics.RecommendRequests.WithLabelValues("not_found").Inc()
		respondError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND",
			fmt.Sprintf("Product %d is not in the trained model", productID), nil)
	case errors.Is(err, recommend.ErrNotReady):
		metrics.RecommendRequests.WithLabelValues("not_ready").Inc()
		respondError(w, http.StatusServiceUnavailable, "MODEL_NOT_READY",
			"The recommendation model is not ready; retry shortly or trigger a retrain", err)
	case errors.Is(err, recommend.ErrNoData):
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "NO_DATA",
			"The catalog has no products to train on", err)
	default:
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Recommendation query failed", err)
	}
}

// userRecommendationsKey is the cache key for a user's explained
// recommendations.
func userRecommendationsKey(userID int) string {
	return fmt.Sprintf("recommendations_user_%d", userID)
}
