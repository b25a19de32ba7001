package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// ConversationService manages persisted conversations.
type ConversationService struct {
	store driven.ConversationStore
}

// NewConversationService creates a new conversation service.
func NewConversationService(store driven.ConversationStore) *ConversationService {
	return &ConversationService{store: store}
}

// List returns the owner's conversations, most recently updated first.
func (s *ConversationService) List(
	ctx context.Context, ownerID string, offset, limit int,
) ([]domain.Conversation, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}
	convs, err := s.store.ListConversations(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Get retrieves a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	return s.store.GetConversation(ctx, ownerID, conversationID)
}

// Messages returns the conversation's messages in order.
func (s *ConversationService) Messages(
	ctx context.Context, ownerID, conversationID string,
) ([]domain.Message, error) {
	return s.store.ListMessages(ctx, ownerID, conversationID)
}

// Delete removes a conversation with its messages and citations.
func (s *ConversationService) Delete(ctx context.Context, ownerID, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, ownerID, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
