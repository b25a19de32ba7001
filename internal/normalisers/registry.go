package normalisers

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.Extractor = (*Registry)(nil)

// Registry maps file types to normalisers.
type Registry struct {
	files       driven.FileStore
	normalisers map[domain.FileType]driven.Normaliser
	log         *logger.Logger
}

// NewRegistry creates an empty registry reading from files.
func NewRegistry(files driven.FileStore, log *logger.Logger) *Registry {
	return &Registry{
		files:       files,
		normalisers: make(map[domain.FileType]driven.Normaliser),
		log:         logger.OrNop(log).With("component", "extractor"),
	}
}

// NewDefaultRegistry registers a normaliser for every supported file type.
func NewDefaultRegistry(files driven.FileStore, log *logger.Logger) *Registry {
	r := NewRegistry(files, log)
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser for each of its file types.
// A later registration replaces an earlier one for the same type.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ft := range n.SupportedFileTypes() {
		r.normalisers[ft] = n
	}
}

// SupportedFileTypes returns the registered file types in sorted order.
func (r *Registry) SupportedFileTypes() []domain.FileType {
	types := make([]domain.FileType, 0, len(r.normalisers))
	for ft := range r.normalisers {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Extract reads the stored file and runs the matching normaliser.
func (r *Registry) Extract(ctx context.Context, path string, fileType domain.FileType) (string, error) {
	n, ok := r.normalisers[fileType]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedType, fileType)
	}

	rc, err := r.files.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", domain.ErrExtraction, path, err)
	}

	result, err := n.Normalise(ctx, &domain.RawDocument{
		Filename: path,
		FileType: fileType,
		Content:  content,
	})
	if err != nil {
		return "", err
	}

	r.log.Debug("extracted text",
		"path", path,
		"type", fileType,
		"bytes", len(content),
		"chars", len(result.Text),
	)
	return result.Text, nil
}
