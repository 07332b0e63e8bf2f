// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import "strings"

// Soup combines an item's textual fields into the single lowercased string
// fed to vectorization: name, category, and description joined by single
// spaces with all repeated whitespace collapsed. A missing description
// contributes nothing. Pure function; always produces a string, possibly
// empty.
func Soup(it Item) string {
	parts := []string{
		strings.ToLower(it.Name),
		strings.ToLower(it.Category),
		strings.ToLower(it.Description),
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
