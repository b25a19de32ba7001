package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(t testing.TB, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`,
		documentPart: documentXML,
		corePart:     coreXML,
	}
	for name, body := range parts {
		if body == "" {
			continue
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`
}

func normalise(t *testing.T, content []byte) (*driven.NormaliseResult, error) {
	t.Helper()
	return New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "doc.docx",
		FileType: domain.FileTypeDocx,
		Content:  content,
	})
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeDocx}, New().SupportedFileTypes())
}

func TestNormalise_Success(t *testing.T) {
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Document</dc:title>
</cp:coreProperties>`

	content := createTestDOCX(t, wrapBody(`<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>`), coreXML)

	result, err := normalise(t, content)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", result.Text)
	assert.Equal(t, "Test Document", result.Metadata["title"])
	assert.Equal(t, "docx", result.Metadata["format"])
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_InvalidZip(t *testing.T) {
	result, err := normalise(t, []byte("not a zip file"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, result)
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	result, err := normalise(t, createTestDOCX(t, "", ""))
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, errMissingPart)
	assert.Nil(t, result)
}

func TestNormalise_MalformedXML(t *testing.T) {
	result, err := normalise(t, createTestDOCX(t, "<w:document><w:body>", ""))
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, result)
}

func TestNormalise_NoTitle(t *testing.T) {
	result, err := normalise(t, createTestDOCX(t, wrapBody(`<w:p><w:r><w:t>Content</w:t></w:r></w:p>`), ""))
	require.NoError(t, err)
	assert.NotContains(t, result.Metadata, "title")
}

func TestNormalise_MultipleParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Third paragraph</w:t></w:r></w:p>`

	result, err := normalise(t, createTestDOCX(t, wrapBody(body), ""))
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph\nThird paragraph", result.Text)
}

func TestNormalise_MultipleRuns(t *testing.T) {
	body := `<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>`

	result, err := normalise(t, createTestDOCX(t, wrapBody(body), ""))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", result.Text)
}

func TestNormalise_TablesAndBreaks(t *testing.T) {
	body := `<w:tbl><w:tr>
<w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc>
</w:tr></w:tbl>
<w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t><w:tab/><w:t>tabbed</w:t></w:r></w:p>`

	result, err := normalise(t, createTestDOCX(t, wrapBody(body), ""))
	require.NoError(t, err)

	assert.Contains(t, result.Text, "Name")
	assert.Contains(t, result.Text, "Value")
	assert.Contains(t, result.Text, "line one\nline two\ttabbed")
}

func TestNormalise_EmptyDocument(t *testing.T) {
	result, err := normalise(t, createTestDOCX(t, wrapBody(""), ""))
	require.NoError(t, err)
	assert.Empty(t, result.Text)
}

func BenchmarkNormalise(b *testing.B) {
	raw := &domain.RawDocument{
		FileType: domain.FileTypeDocx,
		Content:  createTestDOCX(b, wrapBody(`<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>`), ""),
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = New().Normalise(ctx, raw)
	}
}
