// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import "testing"

func TestSoup(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "all fields combined and lowercased",
			item: Item{
				Name:        "Wireless Headphones",
				Category:    "Electronics",
				Description: "Premium sound",
			},
			want: "wireless headphones electronics premium sound",
		},
		{
			name: "whitespace collapsed",
			item: Item{
				Name:        "  Running\tShoes ",
				Category:    "Sports",
				Description: "Lightweight\n\ntrainers",
			},
			want: "running shoes sports lightweight trainers",
		},
		{
			name: "empty description",
			item: Item{
				Name:     "Bottle",
				Category: "Home & Kitchen",
			},
			want: "bottle home & kitchen",
		},
		{
			name: "empty item",
			item: Item{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Soup(tt.item); got != tt.want {
				t.Errorf("Soup() = %q, want %q", got, tt.want)
			}
		})
	}
}
