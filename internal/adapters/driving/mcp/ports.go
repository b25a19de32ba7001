package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search ranks chunks for ad-hoc queries.
	Search driving.SearchService

	// Chat answers questions with citations.
	Chat driving.ChatService

	// Document exposes uploaded documents. Optional.
	Document driving.DocumentService

	// OwnerID scopes every call. Defaults to domain.DefaultOwnerID.
	OwnerID string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}

func (p *Ports) owner() string {
	if p.OwnerID == "" {
		return domain.DefaultOwnerID
	}
	return p.OwnerID
}
