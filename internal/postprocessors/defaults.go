package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// NewIngestionPipeline builds the pipeline used by document ingestion: a
// single sentence chunker with the configured size and overlap. The chunker
// normalises the text itself before splitting it.
func NewIngestionPipeline(settings domain.ChunkingSettings) (*Pipeline, error) {
	if settings.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative", domain.ErrInvalidInput)
	}

	var opts []chunker.Option
	if settings.Size > 0 {
		opts = append(opts, chunker.WithChunkSize(settings.Size))
	}
	opts = append(opts, chunker.WithOverlap(settings.Overlap))

	return NewPipeline(chunker.New(opts...)), nil
}
