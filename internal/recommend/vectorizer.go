// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// VectorizerConfig contains configuration for the TF-IDF vector space.
type VectorizerConfig struct {
	// MaxFeatures caps the vocabulary size. When the candidate pool
	// exceeds it, only the highest corpus-frequency terms are kept.
	MaxFeatures int

	// MaxDocFreq excludes terms appearing in more than this fraction of
	// documents. Near-universal terms carry no signal.
	MaxDocFreq float64
}

// DefaultVectorizerConfig returns the default vector space configuration.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: 1000,
		MaxDocFreq:  0.8,
	}
}

// VectorSpace is the fitted term-vector representation of a corpus.
// Rows share the corpus ordering; each row is L2-normalized.
type VectorSpace struct {
	// Terms is the selected vocabulary with stable index assignment.
	Terms []string

	// Index maps a term to its column. Derived from Terms.
	Index map[string]int

	// Rows is the TF-IDF matrix, one unit-length row per document.
	Rows [][]float64
}

// Vectorizer builds a TF-IDF vector space from text soups.
type Vectorizer struct {
	config VectorizerConfig
}

// NewVectorizer creates a vectorizer, applying defaults for zero values.
func NewVectorizer(cfg VectorizerConfig) *Vectorizer {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 1000
	}
	if cfg.MaxDocFreq <= 0 || cfg.MaxDocFreq > 1 {
		cfg.MaxDocFreq = 0.8
	}
	return &Vectorizer{config: cfg}
}

// Fit builds the vocabulary and the TF-IDF matrix for the given soups.
//
// Candidate terms are unigrams and bigrams of the tokenized soups with
// English stopwords removed. Terms appearing in more than MaxDocFreq of
// the documents are dropped; if the surviving pool still exceeds
// MaxFeatures, the highest corpus-frequency terms win. Weighting is
// smoothed TF-IDF, tf * (ln((1+N)/(1+df)) + 1), with each row scaled to
// unit Euclidean length.
func (v *Vectorizer) Fit(soups []string) (*VectorSpace, error) {
	if len(soups) == 0 {
		return nil, fmt.Errorf("fit vector space: %w", ErrNoData)
	}

	n := len(soups)

	// Per-document term counts plus corpus-wide document and term
	// frequencies, in one pass.
	docCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	corpusFreq := make(map[string]int)

	for i, soup := range soups {
		counts := make(map[string]int)
		for _, term := range extractTerms(soup) {
			counts[term]++
			corpusFreq[term]++
		}
		for term := range counts {
			docFreq[term]++
		}
		docCounts[i] = counts
	}

	terms := v.selectVocabulary(docFreq, corpusFreq, n)
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}

	// Precompute smoothed IDF per column.
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	rows := make([][]float64, n)
	for i, counts := range docCounts {
		row := make([]float64, len(terms))
		var norm float64
		for term, tf := range counts {
			col, ok := index[term]
			if !ok {
				continue
			}
			w := float64(tf) * idf[col]
			row[col] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for col := range row {
				row[col] /= norm
			}
		}
		rows[i] = row
	}

	return &VectorSpace{Terms: terms, Index: index, Rows: rows}, nil
}

// selectVocabulary applies the document-frequency filter and the feature
// cap, returning terms in alphabetical order for stable column indices.
func (v *Vectorizer) selectVocabulary(docFreq, corpusFreq map[string]int, n int) []string {
	candidates := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if float64(df)/float64(n) > v.config.MaxDocFreq {
			continue
		}
		candidates = append(candidates, term)
	}

	if len(candidates) > v.config.MaxFeatures {
		// Keep the highest corpus-frequency terms; ties resolve
		// alphabetically so selection is deterministic.
		sort.Slice(candidates, func(i, j int) bool {
			fi, fj := corpusFreq[candidates[i]], corpusFreq[candidates[j]]
			if fi != fj {
				return fi > fj
			}
			return candidates[i] < candidates[j]
		})
		candidates = candidates[:v.config.MaxFeatures]
	}

	sort.Strings(candidates)
	return candidates
}

// extractTerms tokenizes a soup and emits unigrams and bigrams with
// stopwords removed. Bigrams are built over the stopword-filtered stream,
// so "state of art" produces the bigram "state art".
func extractTerms(soup string) []string {
	tokens := tokenize(soup)

	kept := tokens[:0]
	for _, tok := range tokens {
		if !isStopword(tok) {
			kept = append(kept, tok)
		}
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 1; i < len(kept); i++ {
		terms = append(terms, kept[i-1]+" "+kept[i])
	}
	return terms
}

// tokenize splits a soup into word tokens: maximal runs of letters and
// digits, at least two characters long. Single-character tokens carry no
// signal and match the behavior of standard text vectorizers.
func tokenize(soup string) []string {
	var tokens []string
	var b strings.Builder
	runeCount := 0

	flush := func() {
		// Length in runes, not bytes: a single multibyte letter is
		// still one character.
		if runeCount >= 2 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
		runeCount = 0
	}

	for _, r := range soup {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			runeCount++
			continue
		}
		flush()
	}
	flush()

	return tokens
}
