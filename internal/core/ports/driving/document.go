package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// UploadRequest describes a file handed to the application.
type UploadRequest struct {
	// OwnerID is the uploading user.
	OwnerID string

	// Filename is the original file name.
	Filename string

	// Title overrides the title derived from the filename.
	Title string

	// ContentType is the declared MIME type, if known.
	ContentType string

	// Size is the declared size in bytes.
	Size int64

	// Body streams the file content.
	Body io.Reader
}

// UploadResult is returned once the upload is stored and ingestion is queued.
type UploadResult struct {
	// Document is the created document in status processing.
	Document domain.Document

	// Done receives the ingestion outcome exactly once.
	Done <-chan domain.IngestionResult
}

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Upload validates and stores a file, creates the document and queues ingestion.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// List returns the owner's documents, newest first.
	List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)

	// GetContent returns the extracted text of a completed document.
	GetContent(ctx context.Context, ownerID, documentID string) (string, error)

	// Open returns the stored file for download.
	Open(ctx context.Context, ownerID, documentID string) (io.ReadCloser, *domain.Document, error)

	// Delete removes a document, its stored file, chunks and citations.
	Delete(ctx context.Context, ownerID, documentID string) error

	// Summary counts documents by status.
	Summary(ctx context.Context, ownerID string) (*domain.DocumentSummary, error)

	// Reprocess re-runs ingestion for a document.
	Reprocess(ctx context.Context, ownerID, documentID string) (<-chan domain.IngestionResult, error)

	// Recover re-queues every document left in status processing.
	Recover(ctx context.Context, ownerID string) (int, error)
}
