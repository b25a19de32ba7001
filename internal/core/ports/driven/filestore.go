package driven

import (
	"context"
	"io"
)

// FileStore keeps the bytes of uploaded files.
type FileStore interface {
	// Save writes the content under a generated name that keeps the extension.
	// Returns the storage path and the number of bytes written.
	Save(ctx context.Context, ext string, r io.Reader) (path string, size int64, err error)

	// Open returns a reader for a stored file.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a stored file. Missing files are not an error.
	Delete(ctx context.Context, path string) error
}
