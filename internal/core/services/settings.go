package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyUserID          = "user.id"
	keyDataDir         = "data.dir"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyChatLimit       = "retrieval.chat_limit"
	keySearchLimit     = "retrieval.search_limit"
	keyPhraseRules     = "retrieval.phrase_rules"
	keyWorkers         = "ingestion.workers"
	keyQueueSize       = "ingestion.queue_size"
	keyMaxUploadBytes  = "uploads.max_bytes"
	keyTitleMaxLen     = "chat.title_max_len"
	keyPreviewLen      = "chat.preview_len"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout_seconds"
)

// Environment variables consulted when no API key is configured.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindEmbedProvider
	kindLLMProvider
)

// settableKeys lists the scalar keys that `settings set` accepts.
var settableKeys = map[string]keyKind{
	keyUserID:          kindString,
	keyDataDir:         kindString,
	keyChunkSize:       kindInt,
	keyChunkOverlap:    kindInt,
	keyChatLimit:       kindInt,
	keySearchLimit:     kindInt,
	keyWorkers:         kindInt,
	keyQueueSize:       kindInt,
	keyMaxUploadBytes:  kindInt,
	keyTitleMaxLen:     kindInt,
	keyPreviewLen:      kindInt,
	keyEmbedProvider:   kindEmbedProvider,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedDimensions: kindInt,
	keyLLMProvider:     kindLLMProvider,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMTimeout:      kindInt,
}

// SettingsService builds the immutable runtime settings from configuration.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Load reads configuration over the defaults and validates the result.
func (s *SettingsService) Load() (domain.Settings, error) {
	settings := domain.DefaultSettings()

	settings.OwnerID = s.getString(keyUserID, settings.OwnerID)
	settings.DataDir = s.getString(keyDataDir, settings.DataDir)

	settings.Chunking.Size = s.getInt(keyChunkSize, settings.Chunking.Size)
	settings.Chunking.Overlap = s.getInt(keyChunkOverlap, settings.Chunking.Overlap)

	settings.Retrieval.ChatLimit = s.getInt(keyChatLimit, settings.Retrieval.ChatLimit)
	settings.Retrieval.SearchLimit = s.getInt(keySearchLimit, settings.Retrieval.SearchLimit)
	rules, err := s.phraseRules()
	if err != nil {
		return domain.Settings{}, err
	}
	if rules != nil {
		settings.Retrieval.PhraseRules = rules
	}

	settings.Ingestion.Workers = s.getInt(keyWorkers, settings.Ingestion.Workers)
	settings.Ingestion.QueueSize = s.getInt(keyQueueSize, settings.Ingestion.QueueSize)
	settings.Ingestion.MaxUploadBytes = int64(s.getInt(keyMaxUploadBytes, int(settings.Ingestion.MaxUploadBytes)))

	settings.Chat.TitleMaxLen = s.getInt(keyTitleMaxLen, settings.Chat.TitleMaxLen)
	settings.Chat.PreviewLen = s.getInt(keyPreviewLen, settings.Chat.PreviewLen)

	settings.Embedding.Provider = s.getProvider(keyEmbedProvider, settings.Embedding.Provider)
	settings.Embedding.Model = s.getString(keyEmbedModel, defaultModel(domain.DefaultEmbeddingModels(),
		settings.Embedding.Provider, settings.Embedding.Model))
	settings.Embedding.BaseURL = s.configStore.GetString(keyEmbedBaseURL)
	settings.Embedding.APIKey = apiKeyFor(settings.Embedding.Provider, s.configStore.GetString(keyEmbedAPIKey))
	dims := settings.Embedding.Dimensions
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		dims = d
	}
	settings.Embedding.Dimensions = s.getInt(keyEmbedDimensions, dims)

	settings.LLM.Provider = s.getProvider(keyLLMProvider, settings.LLM.Provider)
	settings.LLM.Model = s.getString(keyLLMModel, defaultModel(domain.DefaultLLMModels(),
		settings.LLM.Provider, settings.LLM.Model))
	settings.LLM.BaseURL = s.configStore.GetString(keyLLMBaseURL)
	settings.LLM.APIKey = apiKeyFor(settings.LLM.Provider, s.configStore.GetString(keyLLMAPIKey))
	if secs := s.configStore.GetInt(keyLLMTimeout); secs > 0 {
		settings.LLMTimeout = secondsToDuration(secs)
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("settings in %s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// Set parses and stores a single configuration value.
// Provider changes reset the model to the provider default unless one is configured.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		if n < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
		return s.save(key, n)

	case kindEmbedProvider:
		return s.SetEmbeddingProvider(domain.AIProvider(value), "")

	case kindLLMProvider:
		return s.SetLLMProvider(domain.AIProvider(value), "")

	default:
		if value == "" {
			return s.configStore.Unset(key)
		}
		return s.save(key, value)
	}
}

// SetEmbeddingProvider switches the embedding provider and model.
// The vector dimension follows the model when it is known.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !containsProvider(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %q does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	if err := s.save(keyEmbedProvider, provider.String()); err != nil {
		return err
	}
	if err := s.save(keyEmbedModel, model); err != nil {
		return err
	}
	if d, ok := domain.EmbeddingDimensions()[model]; ok {
		return s.save(keyEmbedDimensions, d)
	}
	return nil
}

// SetLLMProvider switches the answer-generation provider and model.
// The provider "none" disables the LLM.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model string) error {
	if provider == "none" || provider == "" {
		if err := s.configStore.Unset(keyLLMProvider); err != nil {
			return err
		}
		return s.configStore.Unset(keyLLMModel)
	}
	if !containsProvider(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %q does not support answer generation", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	if err := s.save(keyLLMProvider, provider.String()); err != nil {
		return err
	}
	return s.save(keyLLMModel, model)
}

// Keys returns the configuration keys that may be set.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigPath returns the configuration file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func (s *SettingsService) save(key string, value any) error {
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	if val := s.configStore.GetString(key); val != "" {
		if p := domain.AIProvider(val); p.IsValid() {
			return p
		}
	}
	return defaultVal
}

// phraseRules decodes [[retrieval.phrase_rules]] tables. An absent key
// returns nil so the defaults apply; an empty array disables the stage.
func (s *SettingsService) phraseRules() ([]domain.PhraseRule, error) {
	val, ok := s.configStore.Get(keyPhraseRules)
	if !ok {
		return nil, nil
	}
	items, ok := val.([]any)
	if !ok {
		if typed, isTyped := val.([]map[string]any); isTyped {
			for _, m := range typed {
				items = append(items, m)
			}
		} else {
			return nil, fmt.Errorf("%w: %s must be an array of tables", domain.ErrInvalidInput, keyPhraseRules)
		}
	}

	rules := make([]domain.PhraseRule, 0, len(items))
	for i, item := range items {
		table, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a table", domain.ErrInvalidInput, keyPhraseRules, i)
		}
		rule := domain.PhraseRule{
			Triggers: toStrings(table["triggers"]),
			Phrases:  toStrings(table["phrases"]),
		}
		if len(rule.Triggers) == 0 || len(rule.Phrases) == 0 {
			return nil, fmt.Errorf("%w: %s[%d] needs triggers and phrases", domain.ErrInvalidInput, keyPhraseRules, i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func toStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// apiKeyFor falls back to the provider's conventional environment variable.
func apiKeyFor(provider domain.AIProvider, configured string) string {
	if configured != "" {
		return configured
	}
	switch provider {
	case domain.AIProviderOpenAI:
		return os.Getenv(envOpenAIKey)
	case domain.AIProviderAnthropic:
		return os.Getenv(envAnthropicKey)
	default:
		return ""
	}
}

func defaultModel(models map[domain.AIProvider]string, provider domain.AIProvider, fallback string) string {
	if m, ok := models[provider]; ok {
		return m
	}
	return fallback
}

func containsProvider(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
