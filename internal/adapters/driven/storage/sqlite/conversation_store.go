package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// GetConversation retrieves a conversation scoped to the owner.
func (s *conversationStore) GetConversation(ctx context.Context, ownerID, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM conversations WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, notFound(err, "conversation")
	}
	return &conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *conversationStore) ListConversations(
	ctx context.Context, ownerID string, offset, limit int,
) ([]domain.Conversation, error) {
	page, pageArgs := pageClause(offset, limit)
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM conversations WHERE owner_id = ?
		ORDER BY updated_at DESC, id`+page, append([]any{ownerID}, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return convs, nil
}

// ListMessages returns a conversation's messages in creation order with
// the citations of each assistant message attached.
func (s *conversationStore) ListMessages(
	ctx context.Context, ownerID, conversationID string,
) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at, seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message //nolint:prealloc // size unknown from query
	index := make(map[string]int)
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.Role(role)
		index[msg.ID] = len(msgs)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	citations, err := s.citations(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, c := range citations {
		if i, ok := index[c.MessageID]; ok {
			msgs[i].Citations = append(msgs[i].Citations, c)
		}
	}
	return msgs, nil
}

func (s *conversationStore) citations(ctx context.Context, conversationID string) ([]domain.Citation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT ci.id, ci.message_id, ci.document_id, ci.chunk_id, ci.score
		FROM citations ci JOIN messages m ON m.id = ci.message_id
		WHERE m.conversation_id = ?
		ORDER BY m.seq, ci.rowid
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var citations []domain.Citation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(&c.ID, &c.MessageID, &c.DocumentID, &c.ChunkID, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		citations = append(citations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating citations: %w", err)
	}
	return citations, nil
}

// DeleteConversation removes a conversation; messages and citations cascade.
func (s *conversationStore) DeleteConversation(ctx context.Context, ownerID, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return requireRow(res)
}

// CommitTurn writes the conversation create or touch, both messages and the
// citations in one transaction. Nothing is written when any step fails.
func (s *conversationStore) CommitTurn(ctx context.Context, turn *domain.Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	conv := turn.Conversation
	if turn.NewConversation {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, owner_id, title, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, conv.ID, conv.OwnerID, conv.Title, utc(conv.CreatedAt), utc(conv.UpdatedAt))
		if err != nil {
			if isConstraint(err) {
				return fmt.Errorf("%w: conversation %s: %w", domain.ErrInvalidInput, conv.ID, err)
			}
			return fmt.Errorf("creating conversation: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE conversations SET updated_at = ? WHERE id = ? AND owner_id = ?
		`, utc(conv.UpdatedAt), conv.ID, conv.OwnerID)
		if err != nil {
			return fmt.Errorf("touching conversation: %w", err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("conversation %s: %w", conv.ID, err)
		}
	}

	for _, msg := range []domain.Message{turn.UserMessage, turn.AssistantMessage} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, msg.ID, conv.ID, string(msg.Role), msg.Content, utc(msg.CreatedAt)); err != nil {
			return fmt.Errorf("saving %s message: %w", msg.Role, err)
		}
	}

	for _, c := range turn.Citations {
		if c.MessageID != turn.AssistantMessage.ID {
			return fmt.Errorf("%w: citation %s references message %s", domain.ErrInvalidInput, c.ID, c.MessageID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO citations (id, message_id, document_id, chunk_id, score)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.MessageID, c.DocumentID, c.ChunkID, c.Score); err != nil {
			if isConstraint(err) {
				return fmt.Errorf("%w: chunk %s of document %s: %w", domain.ErrNotFound, c.ChunkID, c.DocumentID, err)
			}
			return fmt.Errorf("saving citation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
