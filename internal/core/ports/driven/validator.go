package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AIConfigValidator checks that configured AI providers are reachable.
// It is used by the settings commands to confirm credentials before relying on them.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	// Unconfigured settings are valid.
	ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	// Unconfigured settings are valid.
	ValidateLLM(ctx context.Context, settings domain.LLMSettings) error
}
