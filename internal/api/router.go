// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package api exposes the recommendation service over HTTP.
//
// Routes:
//
//	GET  /health                          - service and model health
//	GET  /metrics                         - Prometheus metrics
//	GET  /api/v1/products                 - list catalog
//	GET  /api/v1/products/{id}            - one product
//	GET  /api/v1/products/category/{category}  - products in one category
//	GET  /api/v1/products/stats/overview  - catalog and interaction counts
//	GET  /api/v1/products/{id}/recommendations - similar products
//	GET  /api/v1/users/{id}/recommendations    - explained recommendations
//	GET  /api/v1/users/{id}/interactions  - a user's interaction history
//	GET  /api/v1/users/{id}/stats         - a user's interaction summary
//	POST /api/v1/interactions             - record a user-product event
//	GET  /api/v1/model                    - engine training status
//	POST /api/v1/model/retrain            - rebuild the model
//	GET  /api/v1/cache/stats              - response cache statistics
//	DELETE /api/v1/cache                  - clear the response cache
//	DELETE /api/v1/cache/{user_id}        - drop one user's cached response
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercatus-labs/mercatus/internal/config"
	"github.com/mercatus-labs/mercatus/internal/middleware"
)

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(handler *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)    // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer) // Recover from panics
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Timeout(cfg.Timeout))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}

		r.Get("/products", handler.ListProducts)
		r.Get("/products/category/{category}", handler.ProductsByCategory)
		r.Get("/products/stats/overview", handler.ProductStats)
		r.Get("/products/{id}", handler.GetProduct)
		r.Get("/products/{id}/recommendations", handler.ProductRecommendations)

		r.Get("/users/{id}/recommendations", handler.UserRecommendations)
		r.Get("/users/{id}/interactions", handler.UserInteractions)
		r.Get("/users/{id}/stats", handler.UserStats)
		r.Post("/interactions", handler.CreateInteraction)

		r.Get("/model", handler.ModelStatus)
		r.Post("/model/retrain", handler.Retrain)

		r.Get("/cache/stats", handler.CacheStats)
		r.Delete("/cache", handler.CacheClear)
		r.Delete("/cache/{user_id}", handler.UserCacheClear)
	})

	return r
}
