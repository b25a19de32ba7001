package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					Document: domain.Document{ID: "doc-1", Title: "Test Doc"},
					Chunk:    domain.Chunk{ID: "chunk-1", Index: 2, Content: "This is the content"},
					Score:    0.95,
				},
			},
		}

		server := newTestServer(t, &Ports{Search: mockSearch, Chat: &mockChatService{}, OwnerID: "alice"})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Limit: 10, Hybrid: true})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "Test Doc", output.Results[0].Title)
		assert.Equal(t, "chunk-1", output.Results[0].ChunkID)
		assert.Equal(t, 2, output.Results[0].ChunkIndex)
		assert.Equal(t, 0.95, output.Results[0].Score)
		assert.Equal(t, "This is the content", output.Results[0].Content)
		assert.Equal(t, "alice", mockSearch.gotOwner)
		assert.Equal(t, domain.SearchOptions{Limit: 10, Hybrid: true}, mockSearch.gotOpts)
	})

	t.Run("negative limit defers to the service default", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: mockSearch, Chat: &mockChatService{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Limit: -4})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 0, mockSearch.gotOpts.Limit)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, &Ports{Search: mockSearch, Chat: &mockChatService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleChat(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the request", func(t *testing.T) {
		chat := &mockChatService{resp: &driving.ChatResponse{
			Answer:         "An answer.",
			ConversationID: "conv-1",
			MessageID:      "msg-2",
			UserMessageID:  "msg-1",
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: chat, OwnerID: "bob"})

		_, out, err := server.handleChat(ctx, nil, ChatInput{Message: "hello", ConversationID: "conv-1"})

		require.NoError(t, err)
		assert.Equal(t, "An answer.", out.Answer)
		assert.NotNil(t, out.Citations)
		assert.Equal(t, driving.ChatRequest{OwnerID: "bob", Message: "hello", ConversationID: "conv-1"}, chat.gotReq)
	})

	t.Run("returns chat errors", func(t *testing.T) {
		chat := &mockChatService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: chat})

		_, _, err := server.handleChat(ctx, nil, ChatInput{Message: "hello", ConversationID: "missing"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lists documents with default limit", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{{
			ID:         "doc-1",
			Title:      "Notes",
			Filename:   "notes.md",
			FileType:   domain.FileTypeMarkdown,
			FileSize:   42,
			Status:     domain.StatusCompleted,
			ChunkCount: 3,
			CreatedAt:  created,
		}}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: &mockChatService{}, Document: docs})

		_, out, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{Skip: 5})

		require.NoError(t, err)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, "md", out.Documents[0].FileType)
		assert.Equal(t, "completed", out.Documents[0].Status)
		assert.Equal(t, 3, out.Documents[0].ChunkCount)
		assert.Equal(t, created, out.Documents[0].CreatedAt)
		assert.Equal(t, 5, docs.gotOffset)
		assert.Equal(t, defaultListLimit, docs.gotLimit)
	})

	t.Run("no document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: &mockChatService{}})

		_, _, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{})

		assert.ErrorIs(t, err, errDocumentsUnavailable)
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns failed document with reason", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.Document{
			ID:     "doc-1",
			Status: domain.StatusFailed,
			Error:  "no retrievable content",
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: &mockChatService{}, Document: docs})

		_, out, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "failed", out.Status)
		assert.Equal(t, "no retrievable content", out.Error)
	})

	t.Run("propagates not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Chat: &mockChatService{}, Document: docs})

		_, _, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "nope"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
