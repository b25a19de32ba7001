package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ingestionTask is one queued ingestion run.
type ingestionTask struct {
	ctx        context.Context
	documentID string
	done       chan domain.IngestionResult
}

// IngestionService runs extract, chunk, embed and persist for uploaded
// documents on a bounded queue drained by a fixed pool of workers.
//
// A document can have at most one run queued or running. Runs are detached
// from the submitter's cancellation: once queued, a run always finishes with
// the document completed or failed.
type IngestionService struct {
	docs       driven.DocumentStore
	extractor  driven.Extractor
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	dimensions int
	log        *logger.Logger

	tasks chan ingestionTask
	wg    sync.WaitGroup

	// queueMu guards closed and sends on tasks.
	queueMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewIngestionService creates the service and starts its workers.
// embedder may be nil, in which case every run fails with
// domain.ErrEmbeddingUnavailable.
func NewIngestionService(
	docs driven.DocumentStore,
	extractor driven.Extractor,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	settings domain.Settings,
	log *logger.Logger,
) *IngestionService {
	workers := settings.Ingestion.Workers
	if workers < 1 {
		workers = domain.DefaultIngestionWorkers
	}
	queueSize := settings.Ingestion.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	dims := settings.Embedding.Dimensions
	if dims < 1 {
		dims = domain.DefaultEmbeddingDims
	}

	s := &IngestionService{
		docs:       docs,
		extractor:  extractor,
		pipeline:   pipeline,
		embedder:   embedder,
		dimensions: dims,
		log:        logger.OrNop(log).With("component", "ingestion"),
		tasks:      make(chan ingestionTask, queueSize),
		inFlight:   make(map[string]bool),
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

// Submit queues an ingestion run for the document. The returned channel
// receives exactly one result. Submitting a document that is already queued
// or running fails with domain.ErrIngestionInProgress.
func (s *IngestionService) Submit(ctx context.Context, documentID string) (<-chan domain.IngestionResult, error) {
	if err := s.reserve(documentID); err != nil {
		return nil, err
	}
	done, err := s.enqueue(ctx, documentID)
	if err != nil {
		s.release(documentID)
		return nil, err
	}
	return done, nil
}

// Reprocess moves the document back to processing and queues a new run.
func (s *IngestionService) Reprocess(ctx context.Context, documentID string) (<-chan domain.IngestionResult, error) {
	if err := s.reserve(documentID); err != nil {
		return nil, err
	}
	if err := s.docs.SetProcessing(ctx, documentID); err != nil {
		s.release(documentID)
		return nil, fmt.Errorf("reset document: %w", err)
	}
	done, err := s.enqueue(ctx, documentID)
	if err != nil {
		s.release(documentID)
		return nil, err
	}
	return done, nil
}

// RecoverStuck queues a run for every document of the owner left in
// processing without a run, e.g. after the process was interrupted.
// Returns the number of documents queued.
func (s *IngestionService) RecoverStuck(ctx context.Context, ownerID string) (int, error) {
	stuck, err := s.docs.ListByStatus(ctx, ownerID, domain.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing documents: %w", err)
	}
	queued := 0
	for _, doc := range stuck {
		if _, err := s.Submit(ctx, doc.ID); err != nil {
			if errors.Is(err, domain.ErrIngestionInProgress) {
				continue
			}
			return queued, fmt.Errorf("requeue %s: %w", doc.ID, err)
		}
		s.log.Info("requeued stuck document", "document_id", doc.ID, "title", doc.Title)
		queued++
	}
	return queued, nil
}

// InFlight reports whether a run for the document is queued or running.
func (s *IngestionService) InFlight(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[documentID]
}

// Close stops accepting work and waits for queued and running tasks.
func (s *IngestionService) Close() {
	s.queueMu.Lock()
	if s.closed {
		s.queueMu.Unlock()
		return
	}
	s.closed = true
	close(s.tasks)
	s.queueMu.Unlock()
	s.wg.Wait()
}

func (s *IngestionService) reserve(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[documentID] {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrIngestionInProgress)
	}
	s.inFlight[documentID] = true
	return nil
}

func (s *IngestionService) release(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, documentID)
}

func (s *IngestionService) enqueue(ctx context.Context, documentID string) (<-chan domain.IngestionResult, error) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.closed {
		return nil, domain.ErrQueueClosed
	}

	task := ingestionTask{
		ctx:        context.WithoutCancel(ctx),
		documentID: documentID,
		done:       make(chan domain.IngestionResult, 1),
	}
	select {
	case s.tasks <- task:
		s.log.Debug("queued", "document_id", documentID)
		return task.done, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("queue ingestion: %w", ctx.Err())
	}
}

func (s *IngestionService) worker() {
	defer s.wg.Done()
	for task := range s.tasks {
		result := s.run(task.ctx, task.documentID)
		s.release(task.documentID)
		task.done <- result
		close(task.done)
	}
}

// run executes one ingestion run and records its outcome on the document.
func (s *IngestionService) run(ctx context.Context, documentID string) domain.IngestionResult {
	log := s.log.With("document_id", documentID)
	log.Section("Ingestion")

	content, chunks, err := s.prepare(ctx, documentID, log)
	if err == nil {
		err = s.docs.CompleteIngestion(ctx, documentID, content, chunks.chunks, chunks.embeddings)
		if err == nil {
			log.Debug("completed", "chunks", len(chunks.chunks))
			return domain.IngestionResult{
				DocumentID: documentID,
				Status:     domain.StatusCompleted,
				ChunkCount: len(chunks.chunks),
			}
		}
		err = fmt.Errorf("persist chunks: %w", err)
	}

	if errors.Is(err, domain.ErrNotFound) {
		// Deleted while queued or running; nothing left to mark.
		log.Warn("document disappeared during ingestion", "error", err)
		return domain.IngestionResult{DocumentID: documentID, Status: domain.StatusFailed, Err: err}
	}

	log.Warn("ingestion failed", "error", err)
	if ferr := s.docs.FailIngestion(ctx, documentID, err.Error()); ferr != nil {
		log.Error("record ingestion failure", "error", ferr)
	}
	return domain.IngestionResult{DocumentID: documentID, Status: domain.StatusFailed, Err: err}
}

type embeddedChunks struct {
	chunks     []domain.Chunk
	embeddings []domain.Embedding
}

func (s *IngestionService) prepare(
	ctx context.Context, documentID string, log *logger.Logger,
) (string, embeddedChunks, error) {
	doc, err := s.docs.LoadDocument(ctx, documentID)
	if err != nil {
		return "", embeddedChunks{}, fmt.Errorf("load document: %w", err)
	}

	text, err := s.extractor.Extract(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) && !errors.Is(err, domain.ErrUnsupportedType) {
			err = fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}
		return "", embeddedChunks{}, err
	}
	if strings.TrimSpace(text) == "" {
		return "", embeddedChunks{}, fmt.Errorf("%w: no text extracted", domain.ErrEmptyContent)
	}
	log.Debug("extracted", "file_type", doc.FileType, "chars", len(text))

	doc.Content = text
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return "", embeddedChunks{}, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return "", embeddedChunks{}, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyContent)
	}
	log.Debug("chunked", "chunks", len(chunks))

	embeddings, err := s.embed(ctx, chunks)
	if err != nil {
		return "", embeddedChunks{}, err
	}
	return text, embeddedChunks{chunks: chunks, embeddings: embeddings}, nil
}

// embed vectorises every chunk in one batch and checks the dimensions.
func (s *IngestionService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.Embedding, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	model := s.embedder.ModelName()
	embeddings := make([]domain.Embedding, len(chunks))
	for i, v := range vectors {
		if len(v) != s.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrEmbedding, i, len(v), s.dimensions)
		}
		embeddings[i] = domain.Embedding{ChunkID: chunks[i].ID, Vector: v, Model: model}
	}
	return embeddings, nil
}
