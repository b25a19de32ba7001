// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the store interfaces
// through a single database connection:
//
//   - DocumentStore: Documents, chunks and embeddings
//   - ChunkMatcher: Substring matching over completed chunks
//   - ConversationStore: Conversations, messages and citations
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Deleting a document cascades to its chunks, their embeddings and every
// citation that references them.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/docqa.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Multi-row writes run in a single transaction.
package sqlite
