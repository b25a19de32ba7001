package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChatRequest is one user message.
type ChatRequest struct {
	// OwnerID is the requesting user.
	OwnerID string

	// Message is the question text.
	Message string

	// ConversationID continues an existing conversation; empty starts a new one.
	ConversationID string
}

// ChatSource describes a citation for display.
type ChatSource struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkID       string  `json:"chunk_id"`
	Score         float64 `json:"score"`
	Preview       string  `json:"content_preview"`
}

// ChatResponse is the persisted outcome of a turn.
type ChatResponse struct {
	Answer         string       `json:"answer"`
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	UserMessageID  string       `json:"user_message_id"`
	Citations      []ChatSource `json:"citations"`
}

// ChatService runs chat turns.
type ChatService interface {
	// Chat answers a message and persists the turn atomically.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ConversationService manages persisted conversations.
type ConversationService interface {
	// List returns the owner's conversations, most recently updated first.
	List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Conversation, error)

	// Get retrieves a conversation by ID.
	Get(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error)

	// Messages returns the conversation's messages in order.
	Messages(ctx context.Context, ownerID, conversationID string) ([]domain.Message, error)

	// Delete removes a conversation with its messages and citations.
	Delete(ctx context.Context, ownerID, conversationID string) error
}
