package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// Default settings values.
const (
	DefaultOwnerID          = "local"
	DefaultChunkSize        = 512
	DefaultChunkOverlap     = 50
	DefaultEmbeddingDims    = 384
	DefaultChatLimit        = 5
	DefaultSearchLimit      = 10
	DefaultTitleMaxLen      = 50
	DefaultPreviewLen       = 200
	DefaultMaxUploadBytes   = 50 * 1024 * 1024
	DefaultIngestionWorkers = 2
	DefaultQueueSize        = 64
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in deterministic hashing embedder.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (hashing, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the fixed vector length every embedding must have.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider. Empty disables the LLM.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how extracted text is split.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of trailing characters carried into the next chunk.
	Overlap int
}

// RetrievalSettings controls candidate selection.
type RetrievalSettings struct {
	// ChatLimit is the number of candidates retrieved per chat turn.
	ChatLimit int

	// SearchLimit is the default limit for ad-hoc search.
	SearchLimit int

	// PhraseRules is the exact-phrase table, evaluated in order.
	PhraseRules []PhraseRule
}

// IngestionSettings controls the ingestion work queue.
type IngestionSettings struct {
	// Workers is the number of concurrent ingestion runs.
	Workers int

	// QueueSize is the number of tasks that may wait for a worker.
	QueueSize int

	// MaxUploadBytes rejects uploads larger than this.
	MaxUploadBytes int64
}

// ChatSettings controls conversation presentation.
type ChatSettings struct {
	// TitleMaxLen is the number of characters kept from the first message.
	TitleMaxLen int

	// PreviewLen is the number of characters shown for a cited chunk.
	PreviewLen int
}

// Settings is the immutable runtime configuration passed to services at construction.
type Settings struct {
	// OwnerID is the default user scope.
	OwnerID string

	// DataDir holds the database and uploaded files.
	DataDir string

	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Ingestion IngestionSettings
	Chat      ChatSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings

	// LLMTimeout bounds a single answer generation request.
	LLMTimeout time.Duration
}

// DefaultPhraseRules returns the sample exact-phrase table.
func DefaultPhraseRules() []PhraseRule {
	return []PhraseRule{
		{
			Triggers: []string{"real time emotion", "emotion recognition"},
			Phrases:  []string{"real-time emotion", "emotion recognition"},
		},
		{
			Triggers: []string{"machine learning"},
			Phrases:  []string{"machine learning"},
		},
		{
			Triggers: []string{"text to image", "text-to-image"},
			Phrases:  []string{"text-to-image"},
		},
	}
}

// DefaultSettings returns settings with sensible defaults.
// Embeddings default to Ollama's all-minilm model (384 dimensions).
// The LLM is left unconfigured; answers then come from the extractive fallback.
func DefaultSettings() Settings {
	return Settings{
		OwnerID: DefaultOwnerID,
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			ChatLimit:   DefaultChatLimit,
			SearchLimit: DefaultSearchLimit,
			PhraseRules: DefaultPhraseRules(),
		},
		Ingestion: IngestionSettings{
			Workers:        DefaultIngestionWorkers,
			QueueSize:      DefaultQueueSize,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Chat: ChatSettings{
			TitleMaxLen: DefaultTitleMaxLen,
			PreviewLen:  DefaultPreviewLen,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "all-minilm",
			Dimensions: DefaultEmbeddingDims,
		},
		LLMTimeout: 120 * time.Second,
	}
}

// Validate reports the first inconsistent value.
func (s Settings) Validate() error {
	switch {
	case s.Chunking.Size < 1:
		return fmt.Errorf("%w: chunk size must be at least 1", ErrInvalidInput)
	case s.Chunking.Overlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative", ErrInvalidInput)
	case s.Retrieval.ChatLimit < 1 || s.Retrieval.SearchLimit < 1:
		return fmt.Errorf("%w: retrieval limits must be at least 1", ErrInvalidInput)
	case s.Ingestion.Workers < 1:
		return fmt.Errorf("%w: ingestion workers must be at least 1", ErrInvalidInput)
	case s.Ingestion.QueueSize < 0:
		return fmt.Errorf("%w: ingestion queue size must not be negative", ErrInvalidInput)
	case s.Ingestion.MaxUploadBytes < 1:
		return fmt.Errorf("%w: max upload size must be positive", ErrInvalidInput)
	case s.Embedding.Dimensions < 1:
		return fmt.Errorf("%w: embedding dimensions must be at least 1", ErrInvalidInput)
	case s.OwnerID == "":
		return fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing",
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
