// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package explain

import (
	"context"
	"strings"
	"testing"

	"github.com/mercatus-labs/mercatus/internal/catalog"
)

func TestTemplateExplainer(t *testing.T) {
	headphones := catalog.Product{ID: 1, Name: "Wireless Bluetooth Headphones", Category: "Electronics"}
	speaker := catalog.Product{ID: 2, Name: "Portable Bluetooth Speaker", Category: "Electronics"}
	shoes := catalog.Product{ID: 3, Name: "Running Shoes", Category: "Sports"}

	e := NewTemplateExplainer()

	tests := []struct {
		name        string
		source      catalog.Product
		recommended catalog.Product
		wantPart    string
	}{
		{
			name:        "same category names the category",
			source:      headphones,
			recommended: speaker,
			wantPart:    "both in the Electronics category",
		},
		{
			name:        "different category falls back to features",
			source:      headphones,
			recommended: shoes,
			wantPart:    "based on similar features",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Explain(context.Background(), tt.source, tt.recommended)

			if !strings.HasPrefix(got, "Because you liked "+tt.source.Name) {
				t.Errorf("explanation %q missing the standard prefix", got)
			}
			if !strings.Contains(got, tt.recommended.Name) {
				t.Errorf("explanation %q does not mention %q", got, tt.recommended.Name)
			}
			if !strings.Contains(got, tt.wantPart) {
				t.Errorf("explanation %q missing %q", got, tt.wantPart)
			}
		})
	}
}

func TestTemplateExplainerDeterministic(t *testing.T) {
	source := catalog.Product{ID: 1, Name: "A", Category: "X"}
	rec := catalog.Product{ID: 2, Name: "B", Category: "X"}

	e := NewTemplateExplainer()
	first := e.Explain(context.Background(), source, rec)
	for i := 0; i < 5; i++ {
		if got := e.Explain(context.Background(), source, rec); got != first {
			t.Fatalf("explanation changed between calls: %q vs %q", got, first)
		}
	}
}

func TestLowerFirst(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"We think", "we think"},
		{"already", "already"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lowerFirst(tt.in); got != tt.want {
			t.Errorf("lowerFirst(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
