// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package explain generates human-readable reasons for recommendations.
//
// Two implementations exist: TemplateExplainer produces deterministic
// sentence templates, and LLMExplainer asks a chat completion model and
// falls back to templates on any failure. Explanations are best-effort
// decoration; neither implementation ever fails a recommendation
// request.
package explain

import (
	"context"
	"fmt"

	"github.com/mercatus-labs/mercatus/internal/catalog"
	"github.com/mercatus-labs/mercatus/internal/metrics"
)

// Explainer produces a one-sentence reason why a product was
// recommended, given the product the user interacted with.
type Explainer interface {
	Explain(ctx context.Context, source, recommended catalog.Product) string
}

// TemplateExplainer produces deterministic template sentences.
type TemplateExplainer struct{}

// NewTemplateExplainer creates a template-based explainer.
func NewTemplateExplainer() *TemplateExplainer {
	return &TemplateExplainer{}
}

// Explain returns a template sentence. Products sharing a category get
// the category-specific variant.
func (e *TemplateExplainer) Explain(_ context.Context, source, recommended catalog.Product) string {
	metrics.ExplanationRequests.WithLabelValues("template").Inc()
	return templateSentence(source, recommended)
}

func templateSentence(source, recommended catalog.Product) string {
	if source.Category != "" && source.Category == recommended.Category {
		return fmt.Sprintf(
			"Because you liked %s, we think you'll also enjoy %s as they're both in the %s category.",
			source.Name, recommended.Name, source.Category)
	}
	return fmt.Sprintf(
		"Because you liked %s, we think you'll also enjoy %s based on similar features.",
		source.Name, recommended.Name)
}

// Ensure interface compliance.
var _ Explainer = (*TemplateExplainer)(nil)
