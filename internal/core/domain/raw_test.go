package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFileTypeFromFilename tests extension resolution
func TestFileTypeFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     FileType
		ok       bool
	}{
		{"pdf", "report.pdf", FileTypePDF, true},
		{"upper case", "REPORT.PDF", FileTypePDF, true},
		{"text", "notes.txt", FileTypeText, true},
		{"markdown", "README.md", FileTypeMarkdown, true},
		{"docx", "thesis.docx", FileTypeDocx, true},
		{"unsupported", "image.png", "", false},
		{"no extension", "Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FileTypeFromFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFileTypeFromMIME tests content type resolution
func TestFileTypeFromMIME(t *testing.T) {
	got, ok := FileTypeFromMIME("text/plain; charset=utf-8")
	assert.True(t, ok)
	assert.Equal(t, FileTypeText, got)

	got, ok = FileTypeFromMIME(MIMETypeDocx)
	assert.True(t, ok)
	assert.Equal(t, FileTypeDocx, got)

	_, ok = FileTypeFromMIME("image/png")
	assert.False(t, ok)
}

// TestFileType_Extension tests canonical extensions
func TestFileType_Extension(t *testing.T) {
	assert.Equal(t, ".pdf", FileTypePDF.Extension())
	assert.Equal(t, ".md", FileTypeMarkdown.Extension())
	assert.Equal(t, "", FileType("exe").Extension())
	assert.Len(t, AllFileTypes(), 4)
}
