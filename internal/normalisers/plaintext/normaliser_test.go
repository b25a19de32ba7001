package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeText}, New().SupportedFileTypes())
}

func TestNormalise_UTF8(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "notes.txt",
		FileType: domain.FileTypeText,
		Content:  []byte("Café notes: naïve résumé"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Café notes: naïve résumé", result.Text)
	assert.Equal(t, "utf-8", result.Metadata["encoding"])
}

func TestNormalise_Latin1Fallback(t *testing.T) {
	// "Café" with é encoded as the single byte 0xE9.
	raw := &domain.RawDocument{Content: []byte{'C', 'a', 'f', 0xE9}}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Café", result.Text)
	assert.Equal(t, "iso-8859-1", result.Metadata["encoding"])
}

func TestNormalise_StripsBOM(t *testing.T) {
	raw := &domain.RawDocument{Content: append([]byte{0xEF, 0xBB, 0xBF}, "hello"...)}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Text)
}

func TestNormalise_Empty(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
