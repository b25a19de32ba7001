package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SearchService provides ad-hoc search to external actors.
type SearchService interface {
	// Search ranks the owner's completed chunks against the query.
	// A zero limit uses the configured default.
	Search(ctx context.Context, ownerID, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
