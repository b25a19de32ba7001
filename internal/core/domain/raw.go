package domain

// RawDocument is the uploaded file as read back from the file store,
// before text extraction.
type RawDocument struct {
	// Filename is the original upload name.
	Filename string

	// FileType selects the extractor.
	FileType FileType

	// Content is the raw bytes.
	Content []byte
}

// IngestionResult is delivered on a task's completion channel.
type IngestionResult struct {
	// DocumentID identifies the processed document.
	DocumentID string

	// Status is the terminal status the run produced.
	Status DocumentStatus

	// ChunkCount is the number of chunks persisted on success.
	ChunkCount int

	// Err is the failure cause, nil on success.
	Err error
}
