package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ConversationStore persists conversations, messages and citations.
type ConversationStore interface {
	// GetConversation retrieves a conversation scoped to the owner.
	GetConversation(ctx context.Context, ownerID, id string) (*domain.Conversation, error)

	// ListConversations returns an owner's conversations, most recently updated first.
	// A limit of zero or less returns every conversation after offset.
	ListConversations(ctx context.Context, ownerID string, offset, limit int) ([]domain.Conversation, error)

	// ListMessages returns a conversation's messages in creation order,
	// with citations attached to assistant messages.
	ListMessages(ctx context.Context, ownerID, conversationID string) ([]domain.Message, error)

	// DeleteConversation removes a conversation with its messages and citations.
	DeleteConversation(ctx context.Context, ownerID, id string) error

	// CommitTurn persists a whole turn in one transaction: the conversation
	// create or touch, both messages and every citation. Either all rows are
	// written or none are. An existing conversation that has disappeared
	// fails the commit with domain.ErrNotFound.
	CommitTurn(ctx context.Context, turn *domain.Turn) error
}
