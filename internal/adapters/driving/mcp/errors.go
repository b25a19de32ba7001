// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants search uploaded documents and ask grounded questions.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")

// errDocumentsUnavailable is returned by document tools when no document
// service is wired.
var errDocumentsUnavailable = errors.New("document service not configured")
