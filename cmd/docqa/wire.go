package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/answer"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// homeEnv overrides the docqa directory holding config, prompts and data.
const homeEnv = "DOCQA_HOME"

// bootstrap builds every service from the configuration on disk.
// When the settings are invalid it returns only the settings service
// together with the error so the user can repair them.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, error) {
	log := logger.New(opts.Verbose)

	home := os.Getenv(homeEnv)
	if home == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		home = dir
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	partial := &cli.Services{
		Settings:  settingsService,
		Validator: ai.NewConfigValidator(),
		Logger:    log,
		Close:     func() { log.Sync() },
	}

	settings, err := settingsService.Load()
	if err != nil {
		return partial, err
	}
	if opts.User != "" {
		settings.OwnerID = opts.User
	}
	if settings.DataDir == "" {
		settings.DataDir = home
	}

	log.Section("bootstrap")
	log.Debug("settings loaded", "config", settingsService.ConfigPath(), "data_dir", settings.DataDir)

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return partial, fmt.Errorf("open database: %w", err)
	}
	fileStore, err := files.NewStore(filepath.Join(settings.DataDir, "uploads"))
	if err != nil {
		store.Close() //nolint:errcheck // already failing
		return partial, fmt.Errorf("open file store: %w", err)
	}

	extractor := normalisers.NewDefaultRegistry(fileStore, log)
	pipeline, err := postprocessors.NewIngestionPipeline(settings.Chunking)
	if err != nil {
		store.Close() //nolint:errcheck // already failing
		return partial, err
	}

	aiServices := ai.Init(settings, log)

	answerOpts := []answer.Option{
		answer.WithLLM(aiServices.LLMService),
		answer.WithTimeout(settings.LLMTimeout),
		answer.WithLogger(log),
	}
	if prompts, err := file.NewPromptStore(filepath.Join(home, "prompts")); err != nil {
		log.Warn("using built-in prompts", "error", err)
	} else {
		answerOpts = append(answerOpts, answer.WithPromptStore(prompts))
	}
	generator := answer.NewGenerator(answerOpts...)

	ingestion := services.NewIngestionService(
		store.DocumentStore(), extractor, pipeline, aiServices.EmbeddingService, settings, log)
	retrieval := services.NewRetrievalService(store.ChunkMatcher(), settings.Retrieval.PhraseRules, log)

	return &cli.Services{
		Chat:          services.NewChatService(store.ConversationStore(), retrieval, generator, settings, log),
		Conversations: services.NewConversationService(store.ConversationStore()),
		Documents:     services.NewDocumentService(store.DocumentStore(), fileStore, ingestion, settings, log),
		Search:        services.NewSearchService(retrieval, settings.Retrieval.SearchLimit, log),
		Settings:      settingsService,
		Validator:     ai.NewConfigValidator(),
		Logger:        log,
		OwnerID:       settings.OwnerID,
		Close: func() {
			ingestion.Close()
			aiServices.Close()
			if err := store.Close(); err != nil {
				log.Warn("closing database failed", "error", err)
			}
			log.Sync()
		},
	}, nil
}
