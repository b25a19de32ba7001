// Package tui provides an interactive terminal user interface for docqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Search ranks passages for ad-hoc queries.
	Search driving.SearchService

	// Document lists and manages uploads. Optional.
	Document driving.DocumentService

	// Conversations resumes earlier chats. Optional.
	Conversations driving.ConversationService

	// OwnerID scopes every request; empty means the default owner.
	OwnerID string
}

// NewPorts creates a new Ports aggregate with the required services.
func NewPorts(chat driving.ChatService, search driving.SearchService, document driving.DocumentService) *Ports {
	return &Ports{
		Chat:     chat,
		Search:   search,
		Document: document,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

func (p *Ports) owner() string {
	if p.OwnerID == "" {
		return domain.DefaultOwnerID
	}
	return p.OwnerID
}
