package normalisers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func newTestRegistry(t *testing.T) (*Registry, *files.Store) {
	t.Helper()
	store, err := files.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewDefaultRegistry(store, nil), store
}

func save(t *testing.T, store *files.Store, ext, content string) string {
	t.Helper()
	path, _, err := store.Save(context.Background(), ext, strings.NewReader(content))
	require.NoError(t, err)
	return path
}

func TestRegistry_SupportsAllFileTypes(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.ElementsMatch(t, domain.AllFileTypes(), r.SupportedFileTypes())
}

func TestRegistry_ExtractText(t *testing.T) {
	r, store := newTestRegistry(t)
	path := save(t, store, ".txt", "The quick brown fox.")

	text, err := r.Extract(context.Background(), path, domain.FileTypeText)
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox.", text)
}

func TestRegistry_ExtractMarkdown(t *testing.T) {
	r, store := newTestRegistry(t)
	path := save(t, store, ".md", "# Title\n\n**Important** notes")

	text, err := r.Extract(context.Background(), path, domain.FileTypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nImportant notes", text)
}

func TestRegistry_UnsupportedType(t *testing.T) {
	r, store := newTestRegistry(t)
	path := save(t, store, ".bin", "data")

	_, err := r.Extract(context.Background(), path, domain.FileType("exe"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_MissingFile(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Extract(context.Background(), "gone.txt", domain.FileTypeText)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_CorruptDocx(t *testing.T) {
	r, store := newTestRegistry(t)
	path := save(t, store, ".docx", "not a zip")

	_, err := r.Extract(context.Background(), path, domain.FileTypeDocx)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

type upperNormaliser struct{}

func (upperNormaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeText}
}

func (upperNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Text: strings.ToUpper(string(raw.Content))}, nil
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r, store := newTestRegistry(t)
	r.Register(upperNormaliser{})
	path := save(t, store, ".txt", "shout")

	text, err := r.Extract(context.Background(), path, domain.FileTypeText)
	require.NoError(t, err)
	assert.Equal(t, "SHOUT", text)
}
