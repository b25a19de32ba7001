package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Normaliser extracts plain text from one or more file formats.
type Normaliser interface {
	// SupportedFileTypes returns the file types this normaliser handles.
	SupportedFileTypes() []domain.FileType

	// Normalise extracts the text of a raw document.
	// Unreadable or corrupt input fails with domain.ErrExtraction.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of text extraction.
// Cleaning and chunking are handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Text is the extracted text.
	Text string

	// Metadata carries format-specific details (e.g. page count).
	Metadata map[string]string
}

// Extractor resolves a stored file to text.
type Extractor interface {
	// Extract reads the file at path and returns its text.
	// Unsupported types fail with domain.ErrUnsupportedType.
	Extract(ctx context.Context, path string, fileType domain.FileType) (string, error)
}
