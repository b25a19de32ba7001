// Package services implements the driving port interfaces.
// Services contain the core business logic: ingestion of uploaded documents,
// retrieval and ranking of chunks, and the chat turn that ties retrieval,
// answer generation and citation bookkeeping together.
//
// Services depend only on driven ports; stores, extractors and model
// clients are injected at construction.
package services
