package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const testOwner = "alice"

// seedCompleted stores a completed document with one chunk per content string.
func seedCompleted(
	t *testing.T, docs driven.DocumentStore, owner, id, title string, created time.Time, contents ...string,
) []domain.Chunk {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, docs.CreateDocument(ctx, &domain.Document{
		ID: id, OwnerID: owner, Title: title, FileType: domain.FileTypeText,
		Status: domain.StatusProcessing, CreatedAt: created, UpdatedAt: created,
	}))
	chunks := make([]domain.Chunk, len(contents))
	embeddings := make([]domain.Embedding, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("%s-%d", id, i), DocumentID: id, Index: i, Content: c}
		embeddings[i] = domain.Embedding{ChunkID: chunks[i].ID, Vector: []float32{0}, Model: "test"}
	}
	require.NoError(t, docs.CompleteIngestion(ctx, id, strings.Join(contents, " "), chunks, embeddings))
	return chunks
}

// mockExtractor returns canned text per storage path.
type mockExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	err   error
	calls int
	block chan struct{}
}

func (m *mockExtractor) Extract(_ context.Context, path string, fileType domain.FileType) (string, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if fileType == "" {
		return "", domain.ErrUnsupportedType
	}
	return m.texts[path], nil
}

// mockEmbedder returns vectors of a fixed dimension.
type mockEmbedder struct {
	dims   int
	err    error
	short  bool
	model  string
	mu     sync.Mutex
	inputs [][]string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, texts)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	dims := m.dims
	if m.short {
		dims--
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dims)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockAnswers records the context it is given.
type mockAnswers struct {
	answer   string
	question string
	context  string
	calls    int
	onCall   func()
}

func (m *mockAnswers) Generate(_ context.Context, question, contextText string) string {
	m.calls++
	m.question = question
	m.context = contextText
	if m.onCall != nil {
		m.onCall()
	}
	return m.answer
}

// failingConversations fails CommitTurn after delegating reads.
type failingConversations struct {
	driven.ConversationStore
	err error
}

func (f *failingConversations) CommitTurn(_ context.Context, _ *domain.Turn) error {
	return f.err
}

// failingMatcher fails every match.
type failingMatcher struct{}

func (failingMatcher) MatchChunks(_ context.Context, _ driven.MatchQuery) ([]domain.SearchResult, error) {
	return nil, errors.New("database is locked")
}

// mockFileStore keeps files in memory.
type mockFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	n       int
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string][]byte)}
}

func (m *mockFileStore) Save(_ context.Context, ext string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	path := fmt.Sprintf("uploads/file-%d%s", m.n, ext)
	m.files[path] = data
	return path, int64(len(data)), nil
}

func (m *mockFileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *mockFileStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.deleted = append(m.deleted, path)
	return nil
}

// fileTextExtractor returns the stored bytes of a mockFileStore as text.
type fileTextExtractor struct {
	files *mockFileStore
}

func (e fileTextExtractor) Extract(ctx context.Context, path string, _ domain.FileType) (string, error) {
	rc, err := e.files.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), err
}

func waitResult(t *testing.T, done <-chan domain.IngestionResult) domain.IngestionResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion did not finish")
		return domain.IngestionResult{}
	}
}
