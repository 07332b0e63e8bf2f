// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package metrics exposes Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Recommendation query volume and outcomes
//   - Response cache efficiency
//   - Model training duration and size
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mercatus_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercatus_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercatus_recommend_requests_total",
			Help: "Total number of recommendation queries",
		},
		[]string{"outcome"}, // "ok", "not_found", "not_ready", "error"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mercatus_training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercatus_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"result"}, // "ok", "error"
	)

	ModelItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mercatus_model_items",
			Help: "Number of items in the active model",
		},
	)

	ModelVocabulary = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mercatus_model_vocabulary_terms",
			Help: "Vocabulary size of the active model",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercatus_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercatus_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Explanation Metrics
	ExplanationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercatus_explanations_total",
			Help: "Total number of generated explanations",
		},
		[]string{"source"}, // "llm", "template", "fallback"
	)
)

// RecordAPIRequest records latency and count for one API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	APIRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordTraining records the outcome of one training run.
func RecordTraining(duration time.Duration, err error) {
	if err != nil {
		TrainingRuns.WithLabelValues("error").Inc()
		return
	}
	TrainingRuns.WithLabelValues("ok").Inc()
	TrainingDuration.Observe(duration.Seconds())
}
