package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	codeFence    = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)([^*_\n]+)(\*\*|__|\*)`)
	blockquote   = regexp.MustCompile(`(?m)^>[ \t]?`)
	rule         = regexp.MustCompile(`(?m)^[ \t]*([-*_])([ \t]*[-*_]){2,}[ \t]*$`)
	listMarkers  = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	numbered     = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	htmlTags     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	firstHeading = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeMarkdown}
}

// Normalise converts markdown to plain text. Code block contents are kept
// since they are often what a question is about; only the fences go.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	source, encoding, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"format":   "markdown",
		"encoding": encoding,
	}
	if title := Title(source); title != "" {
		metadata["title"] = title
	}

	return &driven.NormaliseResult{
		Text:     Strip(source),
		Metadata: metadata,
	}, nil
}

// Title returns the text of the first level-one heading, if any.
func Title(content string) string {
	m := firstHeading.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), "#"))
}

// Strip removes common markdown formatting.
func Strip(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numbered.ReplaceAllString(content, "$1")
	content = htmlTags.ReplaceAllString(content, "")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
