package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages uploaded documents.
type DocumentService struct {
	docs      driven.DocumentStore
	files     driven.FileStore
	ingestion *IngestionService
	maxBytes  int64
	log       *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docs driven.DocumentStore,
	files driven.FileStore,
	ingestion *IngestionService,
	settings domain.Settings,
	log *logger.Logger,
) *DocumentService {
	maxBytes := settings.Ingestion.MaxUploadBytes
	if maxBytes < 1 {
		maxBytes = domain.DefaultMaxUploadBytes
	}
	return &DocumentService{
		docs:      docs,
		files:     files,
		ingestion: ingestion,
		maxBytes:  maxBytes,
		log:       logger.OrNop(log).With("component", "documents"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Upload validates and stores a file, creates the document in status
// processing and queues its ingestion. It returns without waiting for the run.
func (s *DocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*driving.UploadResult, error) {
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: file content is required", domain.ErrInvalidInput)
	}

	fileType, err := uploadType(filename, req.ContentType)
	if err != nil {
		return nil, err
	}
	if req.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d", domain.ErrUnsupportedInput, req.Size, s.maxBytes)
	}

	path, size, err := s.files.Save(ctx, fileType.Extension(), io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if size > s.maxBytes {
		s.removeFile(ctx, path)
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrUnsupportedInput, s.maxBytes)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	now := s.now()
	doc := &domain.Document{
		ID:          s.newID(),
		OwnerID:     req.OwnerID,
		Title:       title,
		Filename:    filename,
		StoragePath: path,
		FileType:    fileType,
		FileSize:    size,
		Status:      domain.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		s.removeFile(ctx, path)
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.log.Info("uploaded", "document_id", doc.ID, "filename", filename, "bytes", size)

	done, err := s.ingestion.Submit(ctx, doc.ID)
	if err != nil {
		if ferr := s.docs.FailIngestion(ctx, doc.ID, err.Error()); ferr != nil {
			s.log.Error("record queue failure", "document_id", doc.ID, "error", ferr)
		}
		return nil, fmt.Errorf("queue ingestion: %w", err)
	}
	return &driving.UploadResult{Document: *doc, Done: done}, nil
}

// List returns the owner's documents, newest first.
func (s *DocumentService) List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Document, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}
	docs, err := s.docs.ListDocuments(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, ownerID, documentID)
}

// GetContent returns the extracted text of a completed document.
func (s *DocumentService) GetContent(ctx context.Context, ownerID, documentID string) (string, error) {
	doc, err := s.docs.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}
	if doc.Status != domain.StatusCompleted {
		return "", fmt.Errorf("%w: document is %s", domain.ErrInvalidInput, doc.Status)
	}
	return doc.Content, nil
}

// Open returns the stored file for download.
func (s *DocumentService) Open(
	ctx context.Context, ownerID, documentID string,
) (io.ReadCloser, *domain.Document, error) {
	doc, err := s.docs.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", doc.Filename, err)
	}
	return rc, doc, nil
}

// Delete removes a document, cascading to its chunks, embeddings and the
// citations that reference them, then removes the stored file.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.docs.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteDocument(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.removeFile(ctx, doc.StoragePath)
	s.log.Info("deleted", "document_id", documentID)
	return nil
}

// Summary counts the owner's documents by status.
func (s *DocumentService) Summary(ctx context.Context, ownerID string) (*domain.DocumentSummary, error) {
	docs, err := s.docs.ListDocuments(ctx, ownerID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	summary := &domain.DocumentSummary{Total: len(docs), Documents: docs}
	for _, d := range docs {
		switch d.Status {
		case domain.StatusCompleted:
			summary.Completed++
		case domain.StatusProcessing:
			summary.Processing++
		case domain.StatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

// Reprocess re-runs ingestion for one of the owner's documents.
func (s *DocumentService) Reprocess(
	ctx context.Context, ownerID, documentID string,
) (<-chan domain.IngestionResult, error) {
	if _, err := s.docs.GetDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return s.ingestion.Reprocess(ctx, documentID)
}

// Recover re-queues the owner's documents left in processing.
func (s *DocumentService) Recover(ctx context.Context, ownerID string) (int, error) {
	return s.ingestion.RecoverStuck(ctx, ownerID)
}

func (s *DocumentService) removeFile(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		s.log.Warn("remove stored file", "path", path, "error", err)
	}
}

// uploadType accepts a file when either its extension or its declared
// content type is supported. The extension decides when both are known.
func uploadType(filename, contentType string) (domain.FileType, error) {
	if t, ok := domain.FileTypeFromFilename(filename); ok {
		return t, nil
	}
	if t, ok := domain.FileTypeFromMIME(contentType); ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %s (%s) is not a pdf, docx, txt or md file",
		domain.ErrUnsupportedInput, filename, contentType)
}
