package domain

import "time"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Conversation is a persistent chat thread owned by one user.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// OwnerID scopes the conversation to a single user.
	OwnerID string

	// Title is derived from the first user message.
	Title string

	// CreatedAt is when the conversation was started.
	CreatedAt time.Time

	// UpdatedAt is touched on every turn.
	UpdatedAt time.Time
}

// Message is a single utterance within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time

	// Citations is populated for assistant messages when loaded with them.
	Citations []Citation
}

// Citation links an assistant message to the chunk that supported it.
type Citation struct {
	ID         string
	MessageID  string
	DocumentID string
	ChunkID    string
	Score      float64
}

// Turn is one user message plus the assistant reply and its citations.
// It is persisted atomically.
type Turn struct {
	// Conversation is the conversation the turn belongs to.
	Conversation Conversation

	// NewConversation is true when the conversation must be created.
	NewConversation bool

	// UserMessage is the message sent by the user.
	UserMessage Message

	// AssistantMessage is the generated answer.
	AssistantMessage Message

	// Citations reference the chunks used to compose the answer.
	Citations []Citation
}

// ConversationTitle derives a conversation title from the first message.
// Messages longer than maxLen characters are cut and suffixed with "...".
func ConversationTitle(message string, maxLen int) string {
	runes := []rune(message)
	if maxLen <= 0 || len(runes) <= maxLen {
		return message
	}
	return string(runes[:maxLen]) + "..."
}
