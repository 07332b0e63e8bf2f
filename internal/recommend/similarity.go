// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

// BuildSimilarity computes the all-pairs cosine similarity matrix for a
// fitted vector space. Rows are already unit-normalized, so cosine
// similarity reduces to the matrix product of the rows with their
// transpose. The result is symmetric by construction with a maximal
// diagonal.
//
// This is the dominant cost of training, O(n² × vocabulary), which is why
// the fitted model is built once and snapshotted rather than recomputed
// per request.
func BuildSimilarity(rows [][]float64) [][]float64 {
	n := len(rows)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		sim[i][i] = dot(rows[i], rows[i])
		for j := i + 1; j < n; j++ {
			s := dot(rows[i], rows[j])
			sim[i][j] = s
			sim[j][i] = s
		}
	}

	return sim
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
