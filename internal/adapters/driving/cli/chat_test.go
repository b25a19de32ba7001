package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func TestChatCmd_Use(t *testing.T) {
	assert.Equal(t, "chat [message]", chatCmd.Use)
	flag := chatCmd.Flags().Lookup("conversation")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestChatCmd_PrintsAnswerAndSources(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "chat", "What is the capital?")

	require.NoError(t, err)
	assert.Contains(t, out, "Paris is the capital.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Geography (0.900)")
	assert.Contains(t, out, "Conversation: conv-1")

	require.Len(t, ts.chat.requests, 1)
	assert.Equal(t, driving.ChatRequest{OwnerID: domain.DefaultOwnerID, Message: "What is the capital?"}, ts.chat.requests[0])
}

func TestChatCmd_ContinuesConversation(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "chat", "--conversation", "conv-9", "And Spain?")

	require.NoError(t, err)
	assert.Equal(t, "conv-9", ts.chat.requests[0].ConversationID)
}

func TestChatCmd_ReadsStdinWhenNotTerminal(t *testing.T) {
	ts := setupTestServices(t)
	orig := chatInput
	chatInput = strings.NewReader("  question from a pipe \n")
	t.Cleanup(func() { chatInput = orig })

	_, err := execute(t, "chat")

	require.NoError(t, err)
	assert.Equal(t, "question from a pipe", ts.chat.requests[0].Message)
}

func TestChatCmd_EmptyMessage(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "chat", "   ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, ts.chat.requests)
}

func TestChatCmd_OpensTUIOnTerminal(t *testing.T) {
	ts := setupTestServices(t)
	isTerminal = func() bool { return true }

	var app *tui.App
	orig := runProgram
	runProgram = func(a *tui.App) error {
		app = a
		return nil
	}
	t.Cleanup(func() { runProgram = orig })

	_, err := execute(t, "chat", "--conversation", "conv-1")

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Empty(t, ts.chat.requests)
}

func TestChatCmd_TransactionError(t *testing.T) {
	ts := setupTestServices(t)
	ts.chat.chatFunc = func(context.Context, driving.ChatRequest) (*driving.ChatResponse, error) {
		return nil, fmt.Errorf("%w: insert citation", domain.ErrTransaction)
	}

	_, err := execute(t, "chat", "question")

	require.ErrorIs(t, err, domain.ErrTransaction)
	assert.Contains(t, Describe(err), "chat error")
}

func TestChatCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "--json", "chat", "question")
	require.NoError(t, err)

	var resp driving.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "Paris is the capital of France.", resp.Citations[0].Preview)
}
