// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document, chunk and embedding persistence
//   - ChunkMatcher: Case-insensitive substring matching over completed chunks
//   - ConversationStore: Conversation, message and citation persistence
//   - FileStore: Storage for uploaded file bytes
//   - Extractor: Format-specific text extraction
//   - EmbeddingService: Generates vector embeddings for chunks
//   - AnswerGenerator: Composes an answer from a question and context
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model used by the answer generator. Without it,
//     answers are extracted from the retrieved context.
//   - PromptStore: User-editable prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
