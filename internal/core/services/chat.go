package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// NoContextAnswer is returned when retrieval finds nothing for a message.
const NoContextAnswer = "I couldn't find any relevant information in your uploaded documents to answer this question."

// chatState names a step of a chat turn.
type chatState int

const (
	stateStart chatState = iota
	stateConversationResolved
	stateUserMessagePersisted
	stateRetrievalDone
	stateAnswerComposed
	statePersisted
	stateFailed
)

func (s chatState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateConversationResolved:
		return "conversation_resolved"
	case stateUserMessagePersisted:
		return "user_message_persisted"
	case stateRetrievalDone:
		return "retrieval_done"
	case stateAnswerComposed:
		return "answer_composed"
	case statePersisted:
		return "persisted"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatService answers user messages from the owner's documents and records
// each exchange in a conversation.
//
// A turn is staged in memory and written by a single CommitTurn call, so no
// store transaction is open while retrieval or answer generation run. Any
// failure after the conversation is resolved discards the whole turn.
type ChatService struct {
	conversations driven.ConversationStore
	retrieval     *RetrievalService
	answers       driven.AnswerGenerator
	settings      domain.ChatSettings
	limit         int
	log           *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewChatService creates a new chat service.
func NewChatService(
	conversations driven.ConversationStore,
	retrieval *RetrievalService,
	answers driven.AnswerGenerator,
	settings domain.Settings,
	log *logger.Logger,
) *ChatService {
	chat := settings.Chat
	if chat.TitleMaxLen < 1 {
		chat.TitleMaxLen = domain.DefaultTitleMaxLen
	}
	if chat.PreviewLen < 1 {
		chat.PreviewLen = domain.DefaultPreviewLen
	}
	limit := settings.Retrieval.ChatLimit
	if limit < 1 {
		limit = domain.DefaultChatLimit
	}
	return &ChatService{
		conversations: conversations,
		retrieval:     retrieval,
		answers:       answers,
		settings:      chat,
		limit:         limit,
		log:           logger.OrNop(log).With("component", "chat"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Chat runs one turn.
func (s *ChatService) Chat(ctx context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}

	s.log.Section("Chat")
	state := stateStart
	turn := &domain.Turn{}

	// Resolve the conversation.
	if err := s.resolveConversation(ctx, req, turn); err != nil {
		s.transition(&state, stateFailed, "error", err)
		return nil, err
	}
	s.transition(&state, stateConversationResolved, "conversation_id", turn.Conversation.ID, "new", turn.NewConversation)

	// Stage the user message.
	now := s.now()
	turn.UserMessage = domain.Message{
		ID:             s.newID(),
		ConversationID: turn.Conversation.ID,
		Role:           domain.RoleUser,
		Content:        req.Message,
		CreatedAt:      now,
	}
	turn.Conversation.UpdatedAt = now
	s.transition(&state, stateUserMessagePersisted, "message_id", turn.UserMessage.ID)

	candidates, err := s.retrieval.Search(ctx, req.OwnerID, req.Message, s.limit)
	if err != nil {
		return nil, s.fail(&state, fmt.Errorf("retrieve: %w", err))
	}
	s.transition(&state, stateRetrievalDone, "candidates", len(candidates))

	answer := NoContextAnswer
	if len(candidates) > 0 {
		answer = s.answers.Generate(ctx, req.Message, BuildContext(candidates))
	}
	s.transition(&state, stateAnswerComposed, "answer_len", len(answer))

	turn.AssistantMessage = domain.Message{
		ID:             s.newID(),
		ConversationID: turn.Conversation.ID,
		Role:           domain.RoleAssistant,
		Content:        answer,
		CreatedAt:      s.now(),
	}
	if !turn.AssistantMessage.CreatedAt.After(now) {
		turn.AssistantMessage.CreatedAt = now.Add(time.Microsecond)
	}
	sources := make([]driving.ChatSource, 0, len(candidates))
	for _, c := range candidates {
		turn.Citations = append(turn.Citations, domain.Citation{
			ID:         s.newID(),
			MessageID:  turn.AssistantMessage.ID,
			DocumentID: c.Document.ID,
			ChunkID:    c.Chunk.ID,
			Score:      c.Score,
		})
		sources = append(sources, driving.ChatSource{
			DocumentID:    c.Document.ID,
			DocumentTitle: c.Document.Title,
			ChunkID:       c.Chunk.ID,
			Score:         c.Score,
			Preview:       Preview(c.Chunk.Content, s.settings.PreviewLen),
		})
	}

	if err := s.conversations.CommitTurn(ctx, turn); err != nil {
		return nil, s.fail(&state, fmt.Errorf("commit turn: %w", err))
	}
	s.transition(&state, statePersisted, "citations", len(turn.Citations))

	return &driving.ChatResponse{
		Answer:         answer,
		ConversationID: turn.Conversation.ID,
		MessageID:      turn.AssistantMessage.ID,
		UserMessageID:  turn.UserMessage.ID,
		Citations:      sources,
	}, nil
}

func (s *ChatService) resolveConversation(
	ctx context.Context, req driving.ChatRequest, turn *domain.Turn,
) error {
	if req.ConversationID != "" {
		conv, err := s.conversations.GetConversation(ctx, req.OwnerID, req.ConversationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("conversation %s: %w", req.ConversationID, domain.ErrNotFound)
			}
			return fmt.Errorf("%w: load conversation: %w", domain.ErrTransaction, err)
		}
		turn.Conversation = *conv
		return nil
	}

	now := s.now()
	turn.NewConversation = true
	turn.Conversation = domain.Conversation{
		ID:        s.newID(),
		OwnerID:   req.OwnerID,
		Title:     domain.ConversationTitle(req.Message, s.settings.TitleMaxLen),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *ChatService) transition(state *chatState, next chatState, keysAndValues ...any) {
	kv := append([]any{"from", state.String(), "to", next.String()}, keysAndValues...)
	s.log.Debug("chat state", kv...)
	*state = next
}

// fail discards the staged turn and wraps the cause in domain.ErrTransaction.
func (s *ChatService) fail(state *chatState, cause error) error {
	s.log.Error("chat turn rolled back", "state", state.String(), "error", cause)
	s.transition(state, stateFailed)
	return fmt.Errorf("%w: %w", domain.ErrTransaction, cause)
}

// BuildContext joins candidates into the answer context, one block per
// candidate in retrieval order.
func BuildContext(candidates []domain.SearchResult) string {
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		blocks[i] = fmt.Sprintf("From '%s':\n%s", c.Document.Title, c.Chunk.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// Preview returns the first n characters of content, with "..." appended
// when it was cut.
func Preview(content string, n int) string {
	runes := []rune(content)
	if n < 1 || len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
