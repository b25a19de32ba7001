package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist or is owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedInput indicates an upload with a rejected type or size.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrUnsupportedType indicates no extractor exists for a file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Ingestion Errors.

	// ErrExtraction indicates the file could not be read or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyContent indicates extraction or chunking produced nothing retrievable.
	ErrEmptyContent = errors.New("no retrievable content")

	// ErrEmbedding indicates the embedding service failed for the batch.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIngestionInProgress indicates the document is already queued or running.
	ErrIngestionInProgress = errors.New("ingestion in progress")

	// ErrQueueClosed indicates the ingestion queue no longer accepts work.
	ErrQueueClosed = errors.New("ingestion queue closed")

	// Chat Errors.

	// ErrTransaction indicates a chat turn could not be persisted and was rolled back.
	ErrTransaction = errors.New("chat turn failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
