package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkMatcher  = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore
// and driven.ChunkMatcher.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	chunks     map[string][]domain.Chunk
	embeddings map[string][]domain.Embedding

	// onChunksRemoved is called with a document ID after chunks of the
	// document were dropped, by deletion or by replacement.
	onChunksRemoved []func(documentID string)
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		chunks:     make(map[string][]domain.Chunk),
		embeddings: make(map[string][]domain.Embedding),
	}
}

// CreateDocument stores a new document.
func (s *DocumentStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("%w: document %s already exists", domain.ErrInvalidInput, doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID scoped to the owner.
func (s *DocumentStore) GetDocument(_ context.Context, ownerID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	doc.ChunkCount = len(s.chunks[id])
	return &doc, nil
}

// LoadDocument retrieves a document by ID regardless of owner.
func (s *DocumentStore) LoadDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.ChunkCount = len(s.chunks[id])
	return &doc, nil
}

// ListDocuments returns an owner's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string, offset, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.ownedLocked(ownerID, func(domain.Document) bool { return true })
	return paginate(docs, offset, limit), nil
}

// ListByStatus returns an owner's documents in the given status, newest first.
func (s *DocumentStore) ListByStatus(
	_ context.Context, ownerID string, status domain.DocumentStatus,
) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedLocked(ownerID, func(d domain.Document) bool { return d.Status == status }), nil
}

// SetProcessing moves a document back to processing.
func (s *DocumentStore) SetProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusProcessing
	doc.Error = ""
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

// CompleteIngestion replaces chunks and embeddings and marks the document completed.
func (s *DocumentStore) CompleteIngestion(
	_ context.Context, id, content string, chunks []domain.Chunk, embeddings []domain.Embedding,
) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrInvalidInput, len(chunks), len(embeddings))
	}
	s.mu.Lock()
	doc, ok := s.documents[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	for i := range stored {
		stored[i].DocumentID = id
	}
	vectors := make([]domain.Embedding, len(embeddings))
	copy(vectors, embeddings)

	replaced := len(s.chunks[id]) > 0
	s.chunks[id] = stored
	s.embeddings[id] = vectors
	doc.Status = domain.StatusCompleted
	doc.Error = ""
	doc.Content = content
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	hooks := s.onChunksRemoved
	s.mu.Unlock()

	if replaced {
		runHooks(hooks, id)
	}
	return nil
}

// FailIngestion removes chunks and embeddings and marks the document failed.
func (s *DocumentStore) FailIngestion(_ context.Context, id, reason string) error {
	s.mu.Lock()
	doc, ok := s.documents[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	removed := len(s.chunks[id]) > 0
	delete(s.chunks, id)
	delete(s.embeddings, id)
	doc.Status = domain.StatusFailed
	doc.Error = reason
	doc.Content = ""
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	hooks := s.onChunksRemoved
	s.mu.Unlock()

	if removed {
		runHooks(hooks, id)
	}
	return nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	if len(chunks) == 0 {
		return nil, nil
	}
	result := make([]domain.Chunk, len(chunks))
	copy(result, chunks)
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// GetEmbeddings retrieves the embeddings for a document's chunks.
func (s *DocumentStore) GetEmbeddings(_ context.Context, documentID string) ([]domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	embeddings := s.embeddings[documentID]
	if len(embeddings) == 0 {
		return nil, nil
	}
	result := make([]domain.Embedding, len(embeddings))
	copy(result, embeddings)
	return result, nil
}

// DeleteDocument removes a document with its chunks and embeddings.
// Registered hooks run after the store lock is released.
func (s *DocumentStore) DeleteDocument(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	delete(s.embeddings, id)
	hooks := s.onChunksRemoved
	s.mu.Unlock()

	runHooks(hooks, id)
	return nil
}

// MatchChunks returns completed chunks containing any of the query terms.
func (s *DocumentStore) MatchChunks(_ context.Context, q driven.MatchQuery) ([]domain.SearchResult, error) {
	if len(q.Terms) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SearchResult
	for id, doc := range s.documents {
		if doc.OwnerID != q.OwnerID || doc.Status != domain.StatusCompleted {
			continue
		}
		title := strings.ToLower(doc.Title)
		doc.ChunkCount = len(s.chunks[id])
		for _, chunk := range s.chunks[id] {
			content := strings.ToLower(chunk.Content)
			if containsAny(content, q.Terms) || (q.IncludeTitles && containsAny(title, q.Terms)) {
				results = append(results, domain.SearchResult{Chunk: chunk, Document: doc})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Chunk.ID < results[j].Chunk.ID })
	return results, nil
}

// chunkBelongsTo reports whether the chunk exists and belongs to the document.
func (s *DocumentStore) chunkBelongsTo(documentID, chunkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunk := range s.chunks[documentID] {
		if chunk.ID == chunkID {
			return true
		}
	}
	return false
}

// onChunksDropped registers a callback run after a document loses its
// chunks, the in-memory counterpart of a cascading foreign key.
func (s *DocumentStore) onChunksDropped(hook func(documentID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChunksRemoved = append(s.onChunksRemoved, hook)
}

func runHooks(hooks []func(string), documentID string) {
	for _, hook := range hooks {
		hook(documentID)
	}
}

func (s *DocumentStore) ownedLocked(ownerID string, keep func(domain.Document) bool) []domain.Document {
	var result []domain.Document
	for id, doc := range s.documents {
		if doc.OwnerID != ownerID || !keep(doc) {
			continue
		}
		doc.ChunkCount = len(s.chunks[id])
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
