package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Parser extracts the text of each page from PDF bytes.
type Parser func(data []byte) ([]string, error)

// Normaliser handles PDF documents.
type Normaliser struct {
	parse Parser
}

// New creates a PDF normaliser backed by the pure-Go PDF reader.
func New() *Normaliser {
	return &Normaliser{parse: ParsePages}
}

// NewWithParser creates a normaliser with a custom parser (for testing).
func NewWithParser(parse Parser) *Normaliser {
	return &Normaliser{parse: parse}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypePDF}
}

// Normalise extracts the text layer of a PDF. Pages are separated by a
// blank line. Scanned PDFs without a text layer produce empty text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.parse(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if page = strings.TrimSpace(page); page != "" {
			texts = append(texts, page)
		}
	}

	return &driven.NormaliseResult{
		Text: strings.Join(texts, "\n\n"),
		Metadata: map[string]string{
			"format": "pdf",
			"pages":  strconv.Itoa(len(pages)),
		},
	}, nil
}

// ParsePages reads every page's plain text with github.com/ledongthuc/pdf.
// The library panics on some malformed inputs, so panics become errors.
func ParsePages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
