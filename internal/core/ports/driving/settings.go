package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Load builds the immutable runtime settings from configuration.
	Load() (domain.Settings, error)

	// Set stores a single configuration value after validating it.
	Set(key, value string) error

	// SetEmbeddingProvider switches the embedding provider and model.
	// An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// SetLLMProvider switches the answer-generation provider and model.
	// The provider "none" disables the LLM.
	SetLLMProvider(provider domain.AIProvider, model string) error

	// Keys returns the configuration keys that may be set.
	Keys() []string

	// ConfigPath returns the configuration file location.
	ConfigPath() string
}
