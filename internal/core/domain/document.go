package domain

import "time"

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusProcessing is set on upload and while an ingestion run is queued or running.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted means chunks and embeddings are persisted and retrievable.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed means the last ingestion run failed and left no chunks behind.
	StatusFailed DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once an ingestion run has finished.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded file owned by a user.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID scopes the document to a single user.
	OwnerID string

	// Title is the human-readable title.
	Title string

	// Filename is the original name of the uploaded file.
	Filename string

	// StoragePath is where the file store keeps the uploaded bytes.
	StoragePath string

	// FileType is the declared type used to pick an extractor.
	FileType FileType

	// FileSize is the size of the upload in bytes.
	FileSize int64

	// Status is the ingestion lifecycle state.
	Status DocumentStatus

	// Error records why the last ingestion run failed.
	Error string

	// Content is the extracted text, set when ingestion completes.
	Content string

	// ChunkCount is the number of persisted chunks.
	ChunkCount int

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// Chunk represents a retrievable unit within a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based ordinal position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Metadata holds statistics derived while chunking.
	Metadata ChunkMetadata
}

// ChunkMetadata holds statistics derived while chunking.
type ChunkMetadata struct {
	// Length is the character length of the chunk buffer before trimming.
	Length int `json:"length"`

	// SentenceCount is the number of sentence terminators in the buffer.
	SentenceCount int `json:"sentence_count"`

	// Extra carries additional key-value pairs for forward compatibility.
	Extra map[string]string `json:"extra,omitempty"`
}

// Embedding is the vector representation of exactly one chunk.
type Embedding struct {
	// ChunkID links to the embedded Chunk.
	ChunkID string

	// Vector is the fixed-dimension embedding.
	Vector []float32

	// Model names the embedding model that produced the vector.
	Model string
}

// DocumentSummary aggregates document statuses for an owner.
type DocumentSummary struct {
	Total      int
	Completed  int
	Processing int
	Failed     int
	Documents  []Document
}
