package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
// Citations are checked against the document store so a citation can only
// reference a chunk of its own document, and are dropped when that document
// is deleted or its chunks are replaced.
type ConversationStore struct {
	mu            sync.RWMutex
	docs          *DocumentStore
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
	citations     map[string][]domain.Citation
}

// NewConversationStore creates a new in-memory conversation store.
// docs may be nil, in which case citations are not validated.
func NewConversationStore(docs *DocumentStore) *ConversationStore {
	s := &ConversationStore{
		docs:          docs,
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		citations:     make(map[string][]domain.Citation),
	}
	if docs != nil {
		docs.onChunksDropped(s.dropDocumentCitations)
	}
	return s
}

// GetConversation retrieves a conversation scoped to the owner.
func (s *ConversationStore) GetConversation(_ context.Context, ownerID, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return &conv, nil
}

// ListConversations returns an owner's conversations, most recently updated first.
func (s *ConversationStore) ListConversations(
	_ context.Context, ownerID string, offset, limit int,
) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Conversation
	for _, conv := range s.conversations {
		if conv.OwnerID == ownerID {
			result = append(result, conv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, offset, limit), nil
}

// ListMessages returns a conversation's messages in insertion order.
func (s *ConversationStore) ListMessages(
	_ context.Context, ownerID, conversationID string,
) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok || conv.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	stored := s.messages[conversationID]
	result := make([]domain.Message, len(stored))
	for i, msg := range stored {
		if cites := s.citations[msg.ID]; len(cites) > 0 {
			msg.Citations = append([]domain.Citation(nil), cites...)
		}
		result[i] = msg
	}
	return result, nil
}

// DeleteConversation removes a conversation with its messages and citations.
func (s *ConversationStore) DeleteConversation(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	for _, msg := range s.messages[id] {
		delete(s.citations, msg.ID)
	}
	delete(s.messages, id)
	delete(s.conversations, id)
	return nil
}

// CommitTurn validates the whole turn before writing any of it.
func (s *ConversationStore) CommitTurn(_ context.Context, turn *domain.Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", domain.ErrInvalidInput)
	}
	for _, c := range turn.Citations {
		if c.MessageID != turn.AssistantMessage.ID {
			return fmt.Errorf("%w: citation %s references message %s", domain.ErrInvalidInput, c.ID, c.MessageID)
		}
		if s.docs != nil && !s.docs.chunkBelongsTo(c.DocumentID, c.ChunkID) {
			return fmt.Errorf("%w: chunk %s of document %s", domain.ErrNotFound, c.ChunkID, c.DocumentID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convID := turn.Conversation.ID
	existing, exists := s.conversations[convID]
	switch {
	case turn.NewConversation && exists:
		return fmt.Errorf("%w: conversation %s already exists", domain.ErrInvalidInput, convID)
	case !turn.NewConversation && (!exists || existing.OwnerID != turn.Conversation.OwnerID):
		return fmt.Errorf("conversation %s: %w", convID, domain.ErrNotFound)
	}

	conv := turn.Conversation
	if exists {
		existing.UpdatedAt = conv.UpdatedAt
		conv = existing
	}
	s.conversations[convID] = conv
	s.messages[convID] = append(s.messages[convID], turn.UserMessage, turn.AssistantMessage)
	if len(turn.Citations) > 0 {
		s.citations[turn.AssistantMessage.ID] = append([]domain.Citation(nil), turn.Citations...)
	}
	return nil
}

func (s *ConversationStore) dropDocumentCitations(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for msgID, cites := range s.citations {
		kept := cites[:0]
		for _, c := range cites {
			if c.DocumentID != documentID {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(s.citations, msgID)
		} else {
			s.citations[msgID] = kept
		}
	}
}
