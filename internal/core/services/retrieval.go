package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Retrieval scores.
const (
	scorePhrase    = 0.9
	scoreProject   = 0.9
	scoreBuilt     = 0.8
	scoreKeyword   = 0.7
	scoreSecondary = 0.3

	// minTokenLen excludes short words from the keyword stage.
	minTokenLen = 3

	// secondaryTokens is the number of raw query tokens used by the hybrid pass.
	secondaryTokens = 2
)

// RetrievalService selects and ranks chunk candidates for a query.
// Only chunks of the owner's completed documents are ever returned.
type RetrievalService struct {
	matcher driven.ChunkMatcher
	rules   []domain.PhraseRule
	log     *logger.Logger
}

// NewRetrievalService creates a retrieval service over the given matcher.
// rules is the exact-phrase table, evaluated in order.
func NewRetrievalService(matcher driven.ChunkMatcher, rules []domain.PhraseRule, log *logger.Logger) *RetrievalService {
	return &RetrievalService{
		matcher: matcher,
		rules:   rules,
		log:     logger.OrNop(log).With("component", "retrieval"),
	}
}

// Search runs the exact-phrase stage and, when it finds nothing,
// the keyword stage. Results are ordered by descending score.
func (s *RetrievalService) Search(
	ctx context.Context, ownerID, query string, limit int,
) ([]domain.SearchResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", domain.ErrInvalidInput)
	}
	s.log.Section("Retrieval")
	lower := strings.ToLower(query)

	if phrases := s.phrasesFor(lower); len(phrases) > 0 {
		s.log.Debug("phrase stage", "phrases", phrases)
		results, err := s.phraseStage(ctx, ownerID, phrases, limit)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			s.log.Debug("phrase stage matched", "results", len(results))
			return results, nil
		}
	}

	tokens := keywordTokens(lower)
	if len(tokens) == 0 {
		s.log.Debug("no usable keywords", "query", query)
		return []domain.SearchResult{}, nil
	}
	s.log.Debug("keyword stage", "tokens", tokens)
	return s.keywordStage(ctx, ownerID, tokens, limit)
}

// HybridSearch merges the Search result with a low-scored pass over the
// first query tokens. Primary results win on chunk conflicts.
func (s *RetrievalService) HybridSearch(
	ctx context.Context, ownerID, query string, limit int,
) ([]domain.SearchResult, error) {
	primary, err := s.Search(ctx, ownerID, query, limit)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) > secondaryTokens {
		tokens = tokens[:secondaryTokens]
	}
	if len(tokens) == 0 {
		return primary, nil
	}

	candidates, err := s.matcher.MatchChunks(ctx, driven.MatchQuery{OwnerID: ownerID, Terms: tokens})
	if err != nil {
		return nil, fmt.Errorf("hybrid pass: %w", err)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
			return a.Document.CreatedAt.After(b.Document.CreatedAt)
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	seen := make(map[string]bool, len(primary))
	merged := make([]domain.SearchResult, 0, len(primary)+len(candidates))
	for _, r := range primary {
		seen[r.Chunk.ID] = true
		merged = append(merged, r)
	}
	for _, r := range candidates {
		if seen[r.Chunk.ID] {
			continue
		}
		seen[r.Chunk.ID] = true
		r.Score = scoreSecondary
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	s.log.Debug("hybrid merge", "primary", len(primary), "secondary", len(candidates), "results", len(merged))
	return merged, nil
}

// phrasesFor returns the phrases of the first rule triggered by the query.
func (s *RetrievalService) phrasesFor(lowerQuery string) []string {
	for _, rule := range s.rules {
		if !rule.Matches(lowerQuery) {
			continue
		}
		phrases := make([]string, 0, len(rule.Phrases))
		for _, p := range rule.Phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				phrases = append(phrases, p)
			}
		}
		return phrases
	}
	return nil
}

func (s *RetrievalService) phraseStage(
	ctx context.Context, ownerID string, phrases []string, limit int,
) ([]domain.SearchResult, error) {
	results, err := s.matcher.MatchChunks(ctx, driven.MatchQuery{OwnerID: ownerID, Terms: phrases})
	if err != nil {
		return nil, fmt.Errorf("phrase stage: %w", err)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Chunk.Index != b.Chunk.Index {
			return a.Chunk.Index < b.Chunk.Index
		}
		if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
			return a.Document.CreatedAt.Before(b.Document.CreatedAt)
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Score = scorePhrase
	}
	return results, nil
}

func (s *RetrievalService) keywordStage(
	ctx context.Context, ownerID string, tokens []string, limit int,
) ([]domain.SearchResult, error) {
	results, err := s.matcher.MatchChunks(ctx, driven.MatchQuery{
		OwnerID:       ownerID,
		Terms:         tokens,
		IncludeTitles: true,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword stage: %w", err)
	}
	for i := range results {
		results[i].Score = keywordScore(results[i].Chunk.Content)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		la, lb := utf8.RuneCountInString(a.Chunk.Content), utf8.RuneCountInString(b.Chunk.Content)
		if la != lb {
			return la < lb
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return results, nil
}

// keywordTokens returns the distinct whitespace tokens longer than two characters.
func keywordTokens(lowerQuery string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(lowerQuery) {
		if utf8.RuneCountInString(tok) < minTokenLen || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

func keywordScore(content string) float64 {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "project"):
		return scoreProject
	case strings.Contains(lower, "built"):
		return scoreBuilt
	default:
		return scoreKeyword
	}
}
