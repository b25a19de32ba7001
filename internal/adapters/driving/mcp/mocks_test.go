package mcp

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	gotOwner string
	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	ownerID string,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.gotOwner = ownerID
	m.gotQuery = query
	m.gotOpts = opts
	return m.results, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	resp *driving.ChatResponse
	err  error

	gotReq driving.ChatRequest
}

func (m *mockChatService) Chat(_ context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	m.gotReq = req
	return m.resp, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	err       error

	gotOffset int
	gotLimit  int
}

func (m *mockDocumentService) Upload(context.Context, driving.UploadRequest) (*driving.UploadResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string, offset, limit int) ([]domain.Document, error) {
	m.gotOffset = offset
	m.gotLimit = limit
	return m.documents, m.err
}

func (m *mockDocumentService) Get(context.Context, string, string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetContent(context.Context, string, string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) Open(context.Context, string, string) (io.ReadCloser, *domain.Document, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.content)), m.document, nil
}

func (m *mockDocumentService) Delete(context.Context, string, string) error {
	return m.err
}

func (m *mockDocumentService) Summary(context.Context, string) (*domain.DocumentSummary, error) {
	return &domain.DocumentSummary{}, m.err
}

func (m *mockDocumentService) Reprocess(context.Context, string, string) (<-chan domain.IngestionResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) Recover(context.Context, string) (int, error) {
	return 0, m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports, nil)
	require.NoError(t, err)
	return s
}
