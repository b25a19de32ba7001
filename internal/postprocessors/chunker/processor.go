// Package chunker provides a sentence-respecting text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/normalise"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of characters carried into the next chunk.
const DefaultChunkOverlap = 50

// sentenceBoundary matches one or more consecutive sentence terminators.
var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Record is a single chunk produced from a text.
type Record struct {
	Content  string
	Index    int
	Metadata domain.ChunkMetadata
}

// Processor splits document content into overlapping, sentence-aligned chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	records := p.Chunk(doc.Content)
	if len(records) == 0 {
		// Empty content produces no chunks
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(records))
	for _, rec := range records {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      rec.Index,
			Content:    rec.Content,
			Metadata:   rec.Metadata,
		})
	}

	return chunks, nil
}

// Chunk normalises text and greedily packs its sentences into records of at
// most chunkSize characters. A sentence longer than chunkSize on its own is
// emitted as a single oversized record rather than cut. Lengths count runes.
func (p *Processor) Chunk(text string) []Record {
	text = normalise.Text(text)
	if text == "" {
		return nil
	}

	var records []Record
	var buf []rune
	index := 0

	for _, fragment := range sentenceBoundary.Split(text, -1) {
		sentence := []rune(strings.TrimSpace(fragment))
		if len(sentence) == 0 {
			continue
		}

		if len(buf)+len(sentence)+1 > p.chunkSize {
			if len(buf) > 0 {
				records = append(records, newRecord(buf, index))
				index++
				buf = p.seed(buf, sentence)
			} else {
				buf = sentence
			}
			continue
		}

		if len(buf) > 0 {
			buf = append(buf, ' ')
			buf = append(buf, sentence...)
		} else {
			buf = sentence
		}
	}

	if strings.TrimSpace(string(buf)) != "" {
		records = append(records, newRecord(buf, index))
	}

	return records
}

// seed starts the buffer after a closed chunk. The closed buffer's suffix is
// carried over only when it fits alongside the sentence.
func (p *Processor) seed(closed, sentence []rune) []rune {
	if p.overlap > 0 && len(closed) > p.overlap {
		suffix := closed[len(closed)-p.overlap:]
		if len(suffix)+1+len(sentence) <= p.chunkSize {
			next := make([]rune, 0, len(suffix)+1+len(sentence))
			next = append(next, suffix...)
			next = append(next, ' ')
			return append(next, sentence...)
		}
	}
	return sentence
}

func newRecord(buf []rune, index int) Record {
	text := string(buf)
	return Record{
		Content: strings.TrimSpace(text),
		Index:   index,
		Metadata: domain.ChunkMetadata{
			Length:        len(buf),
			SentenceCount: strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?"),
		},
	}
}
