package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentStore persists documents, chunks and embeddings.
// Every read is scoped to an owner; a document owned by someone else is
// reported as domain.ErrNotFound.
type DocumentStore interface {
	// CreateDocument stores a new document.
	CreateDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID scoped to the owner.
	GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// LoadDocument retrieves a document by ID regardless of owner.
	// Used by the ingestion pipeline, which runs on behalf of the owner.
	LoadDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns an owner's documents, newest first.
	// A limit of zero or less returns every document after offset.
	ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]domain.Document, error)

	// ListByStatus returns an owner's documents in the given status.
	ListByStatus(ctx context.Context, ownerID string, status domain.DocumentStatus) ([]domain.Document, error)

	// SetProcessing moves a document back to processing before a re-run.
	SetProcessing(ctx context.Context, id string) error

	// CompleteIngestion atomically replaces the document's chunks and embeddings,
	// stores the extracted text and marks the document completed.
	CompleteIngestion(ctx context.Context, id, content string, chunks []domain.Chunk, embeddings []domain.Embedding) error

	// FailIngestion atomically removes any chunks and embeddings and marks the
	// document failed with the given reason.
	FailIngestion(ctx context.Context, id, reason string) error

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetEmbeddings retrieves the embeddings for a document's chunks ordered by chunk index.
	GetEmbeddings(ctx context.Context, documentID string) ([]domain.Embedding, error)

	// DeleteDocument removes a document and cascades to its chunks,
	// embeddings and any citations referencing those chunks.
	DeleteDocument(ctx context.Context, ownerID, id string) error
}

// MatchQuery describes a substring match over an owner's completed chunks.
type MatchQuery struct {
	// OwnerID restricts candidates to this owner's documents.
	OwnerID string

	// Terms are lowercase substrings; a chunk matches if it contains ANY of them.
	Terms []string

	// IncludeTitles also matches terms against the parent document title.
	IncludeTitles bool
}

// ChunkMatcher selects retrieval candidates. Only chunks of documents with
// status completed are ever returned. Ordering and scoring are left to the caller.
type ChunkMatcher interface {
	// MatchChunks returns every matching chunk with its parent document.
	// Returned results carry a zero score.
	MatchChunks(ctx context.Context, q MatchQuery) ([]domain.SearchResult, error)
}
