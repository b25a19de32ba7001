package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Chat: &mockChatService{}}
		server, err := NewServer(ports, nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil chat service returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		_, err := NewServer(ports, nil)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
			Chat:   &mockChatService{},
		}
		server, err := NewServer(ports, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingSearchService)
	})

	t.Run("document service is optional", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, Chat: &mockChatService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:   &mockSearchService{},
			Chat:     &mockChatService{},
			Document: &mockDocumentService{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestPorts_Owner(t *testing.T) {
	assert.Equal(t, domain.DefaultOwnerID, (&Ports{}).owner())
	assert.Equal(t, "alice", (&Ports{OwnerID: "alice"}).owner())
}

// connect wires the server to a client over in-memory transports.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_InMemorySession(t *testing.T) {
	search := &mockSearchService{
		results: []domain.SearchResult{{
			Document: domain.Document{ID: "doc-1", Title: "Deep Learning"},
			Chunk:    domain.Chunk{ID: "chunk-1", Content: "CNN stands for convolutional neural network."},
			Score:    0.8,
		}},
	}
	chat := &mockChatService{resp: &driving.ChatResponse{
		Answer:         "A convolutional neural network.",
		ConversationID: "conv-1",
	}}
	docs := &mockDocumentService{content: "full text"}

	session := connect(t, newTestServer(t, &Ports{Search: search, Chat: chat, Document: docs}))
	ctx := context.Background()

	t.Run("lists tools", func(t *testing.T) {
		res, err := session.ListTools(ctx, nil)
		require.NoError(t, err)

		names := make([]string, 0, len(res.Tools))
		for _, tool := range res.Tools {
			names = append(names, tool.Name)
		}
		assert.ElementsMatch(t, []string{"search", "chat", "list_documents", "get_document"}, names)
	})

	t.Run("calls search", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "search",
			Arguments: map[string]any{"query": "what is CNN", "limit": 3},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)

		var out SearchOutput
		require.NoError(t, decodeStructured(res, &out))
		require.Equal(t, 1, out.Count)
		assert.Equal(t, "chunk-1", out.Results[0].ChunkID)
		assert.Equal(t, "what is CNN", search.gotQuery)
		assert.Equal(t, 3, search.gotOpts.Limit)
	})

	t.Run("calls chat", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "chat",
			Arguments: map[string]any{"message": "what is CNN"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)

		var out driving.ChatResponse
		require.NoError(t, decodeStructured(res, &out))
		assert.Equal(t, "conv-1", out.ConversationID)
		assert.Equal(t, domain.DefaultOwnerID, chat.gotReq.OwnerID)
	})

	t.Run("reads document resource", func(t *testing.T) {
		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "docqa://documents/doc-1"})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "full text", res.Contents[0].Text)
	})
}

func decodeStructured(res *mcp.CallToolResult, v any) error {
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
