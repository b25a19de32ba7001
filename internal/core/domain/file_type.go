package domain

import (
	"path/filepath"
	"strings"
)

// FileType identifies a supported upload format.
type FileType string

// Supported file types.
const (
	FileTypePDF      FileType = "pdf"
	FileTypeText     FileType = "txt"
	FileTypeMarkdown FileType = "md"
	FileTypeDocx     FileType = "docx"
)

// MIME types accepted on upload.
const (
	MIMETypePDF      = "application/pdf"
	MIMETypeText     = "text/plain"
	MIMETypeMarkdown = "text/markdown"
	MIMETypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensionTypes = map[string]FileType{
	".pdf":  FileTypePDF,
	".txt":  FileTypeText,
	".md":   FileTypeMarkdown,
	".docx": FileTypeDocx,
}

var mimeTypes = map[string]FileType{
	MIMETypePDF:      FileTypePDF,
	MIMETypeText:     FileTypeText,
	MIMETypeMarkdown: FileTypeMarkdown,
	MIMETypeDocx:     FileTypeDocx,
}

// IsValid returns true if the file type is supported.
func (t FileType) IsValid() bool {
	switch t {
	case FileTypePDF, FileTypeText, FileTypeMarkdown, FileTypeDocx:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t FileType) String() string {
	return string(t)
}

// Extension returns the canonical file extension including the dot.
func (t FileType) Extension() string {
	if !t.IsValid() {
		return ""
	}
	return "." + string(t)
}

// FileTypeFromFilename resolves a file type from the filename extension.
func FileTypeFromFilename(name string) (FileType, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// FileTypeFromMIME resolves a file type from a declared content type.
// Parameters such as "; charset=utf-8" are ignored.
func FileTypeFromMIME(contentType string) (FileType, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	t, ok := mimeTypes[strings.ToLower(strings.TrimSpace(mediaType))]
	return t, ok
}

// AllFileTypes returns every supported file type.
func AllFileTypes() []FileType {
	return []FileType{FileTypePDF, FileTypeText, FileTypeMarkdown, FileTypeDocx}
}
