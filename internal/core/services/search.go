package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService exposes retrieval for ad-hoc queries.
type SearchService struct {
	retrieval    *RetrievalService
	defaultLimit int
	log          *logger.Logger
}

// NewSearchService creates a new search service.
// A defaultLimit below one falls back to domain.DefaultSearchLimit.
func NewSearchService(retrieval *RetrievalService, defaultLimit int, log *logger.Logger) *SearchService {
	if defaultLimit < 1 {
		defaultLimit = domain.DefaultSearchLimit
	}
	return &SearchService{
		retrieval:    retrieval,
		defaultLimit: defaultLimit,
		log:          logger.OrNop(log),
	}
}

// Search ranks the owner's completed chunks against the query.
func (s *SearchService) Search(
	ctx context.Context, ownerID, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.log.Debug("empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	limit := opts.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}

	s.log.Debug("search", "owner", ownerID, "query", query, "limit", limit, "hybrid", opts.Hybrid)
	if opts.Hybrid {
		return s.retrieval.HybridSearch(ctx, ownerID, query, limit)
	}
	return s.retrieval.Search(ctx, ownerID, query, limit)
}
