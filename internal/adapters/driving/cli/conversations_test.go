package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestConversationsList(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "conversations", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "conv-1")
	assert.Contains(t, out, "What is machine learning?")
}

func TestConversationsList_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "--user", "bob", "conversations", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet.")
}

func TestConversationsShow(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "conversations", "show", "conv-1")

	require.NoError(t, err)
	assert.Contains(t, out, "You: What is machine learning?")
	assert.Contains(t, out, "Assistant: A field of study.")
	assert.Contains(t, out, "[1] document doc-1, chunk chunk-1 (0.800)")
}

func TestConversationsShow_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "--json", "conversations", "show", "conv-1")
	require.NoError(t, err)

	var conv conversationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
	require.Len(t, conv.Messages[1].Citations, 1)
	assert.Equal(t, "chunk-1", conv.Messages[1].Citations[0].ChunkID)
}

func TestConversationsShow_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "conversations", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationsDelete(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "conversations", "delete", "conv-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conversation conv-1")
	assert.Empty(t, ts.conversations.convs)
}
