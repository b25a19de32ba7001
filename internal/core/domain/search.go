package domain

import "strings"

// SearchOptions configures an ad-hoc search.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Hybrid merges a secondary low-scored keyword pass into the results.
	Hybrid bool
}

// SearchResult represents a single retrieval candidate.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Document is the chunk's parent document.
	Document Document

	// Score is the relevance score in [0, 1].
	Score float64
}

// PhraseRule maps query triggers to exact phrases searched in chunk content.
// A rule fires when the lowercased query contains any trigger.
type PhraseRule struct {
	Triggers []string
	Phrases  []string
}

// Matches returns true if the lowercased query contains any trigger.
func (r PhraseRule) Matches(lowerQuery string) bool {
	for _, t := range r.Triggers {
		if t != "" && strings.Contains(lowerQuery, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
