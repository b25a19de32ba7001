package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

const defaultListLimit = 50

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the search query to find document passages"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default from settings)"`
	Hybrid bool   `json:"hybrid,omitempty" jsonschema:"use phrase and keyword stages before the fallback"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkID    string  `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	Message        string `json:"message" jsonschema:"the question to answer from the uploaded documents"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an existing conversation"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Skip  int `json:"skip,omitempty" jsonschema:"number of documents to skip"`
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 50)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	ID string `json:"id" jsonschema:"the document id"`
}

// DocumentOutput describes an uploaded document.
type DocumentOutput struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search passages across uploaded documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Answer a question from uploaded documents, with citations",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents, newest first",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get an uploaded document's details and processing status",
	}, s.handleGetDocument)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{Limit: max(input.Limit, 0), Hybrid: input.Hybrid}
	results, err := s.ports.Search.Search(ctx, s.ports.owner(), input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].Document.ID,
			Title:      results[i].Document.Title,
			ChunkID:    results[i].Chunk.ID,
			ChunkIndex: results[i].Chunk.Index,
			Score:      results[i].Score,
			Content:    results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleChat handles the chat tool invocation.
func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, driving.ChatResponse, error) {
	resp, err := s.ports.Chat.Chat(ctx, driving.ChatRequest{
		OwnerID:        s.ports.owner(),
		Message:        input.Message,
		ConversationID: input.ConversationID,
	})
	if err != nil {
		s.log.Warn("chat tool failed", "error", err)
		return nil, driving.ChatResponse{}, err
	}
	if resp.Citations == nil {
		resp.Citations = []driving.ChatSource{}
	}
	return nil, *resp, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Document == nil {
		return nil, ListDocumentsOutput{}, errDocumentsUnavailable
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	docs, err := s.ports.Document.List(ctx, s.ports.owner(), max(input.Skip, 0), limit)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DocumentOutput{}, errDocumentsUnavailable
	}

	doc, err := s.ports.Document.Get(ctx, s.ports.owner(), input.ID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(doc), nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:         doc.ID,
		Title:      doc.Title,
		Filename:   doc.Filename,
		FileType:   doc.FileType.String(),
		FileSize:   doc.FileSize,
		Status:     doc.Status.String(),
		Error:      doc.Error,
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
