package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change docqa settings.

Settings are stored in config.toml inside the docqa directory. API keys may
also come from OPENAI_API_KEY and ANTHROPIC_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting. Run 'docqa settings keys' for the accepted keys.

An empty value removes a text setting. Setting embedding.provider or
llm.provider also selects that provider's default model.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the AI providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively select the embedding provider and model used for retrieval.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Interactively select the LLM used to write answers.

Without an LLM, answers are composed from the best matching passages.`,
	Args: cobra.NoArgs,
	RunE: runSettingsLLM,
}

// settingsInput is where interactive prompts read from.
var settingsInput io.Reader = os.Stdin

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}

	cmd.Printf("Config file: %s\n\n", settingsService.ConfigPath())

	settings, err := settingsService.Load()
	if err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings set <key> <value>' to fix it.")
		return nil
	}

	cmd.Println("[General]")
	cmd.Printf("  User: %s\n", settings.OwnerID)
	cmd.Printf("  Data dir: %s\n", settings.DataDir)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Chat limit: %d\n", settings.Retrieval.ChatLimit)
	cmd.Printf("  Search limit: %d\n", settings.Retrieval.SearchLimit)
	cmd.Printf("  Phrase rules: %d\n", len(settings.Retrieval.PhraseRules))
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Workers: %d\n", settings.Ingestion.Workers)
	cmd.Printf("  Queue size: %d\n", settings.Ingestion.QueueSize)
	cmd.Printf("  Max upload: %s\n", humanBytes(settings.Ingestion.MaxUploadBytes))
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: none (extractive answers)")
		return nil
	}
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Timeout: %s\n", settings.LLMTimeout)
	cmd.Printf("  Status: %s\n", configuredLabel(settings.LLM.IsConfigured()))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	shown := args[1]
	if strings.HasSuffix(args[0], "api_key") {
		shown = maskAPIKey(shown)
	}
	cmd.Printf("Set %s = %s\n", args[0], shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || providerValidator == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}
	settings, err := settingsService.Load()
	if err != nil {
		return err
	}

	var failed bool
	cmd.Printf("Embedding (%s)... ", settings.Embedding.Provider)
	if err := providerValidator.ValidateEmbedding(cmd.Context(), settings.Embedding); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if settings.LLM.Provider == "" {
		cmd.Println("LLM: none, answers are extractive")
	} else {
		cmd.Printf("LLM (%s)... ", settings.LLM.Provider)
		if err := providerValidator.ValidateLLM(cmd.Context(), settings.LLM); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = true
		} else {
			cmd.Println("OK")
		}
	}

	if failed {
		return errors.New("provider check failed")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(settingsInput))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("%w: settings", errNotConfigured)
	}
	return configureLLMProvider(cmd, bufio.NewReader(settingsInput))
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	model := promptModel(cmd, reader, domain.DefaultEmbeddingModels()[selected])
	if err := promptAPIKey(cmd, reader, selected, "embedding.api_key"); err != nil {
		return err
	}
	if err := settingsService.SetEmbeddingProvider(selected, model); err != nil {
		return fmt.Errorf("configure embedding provider: %w", err)
	}

	if providerValidator != nil {
		settings, err := settingsService.Load()
		if err != nil {
			return err
		}
		cmd.Print("Validating configuration... ")
		if err := providerValidator.ValidateEmbedding(cmd.Context(), settings.Embedding); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	cmd.Println("Run 'docqa documents reprocess <id>' for documents embedded with the previous model.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Printf("  %d. None (extractive answers)\n", len(providers)+1)
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers)+1, 1)
	if idx == len(providers)+1 {
		if err := settingsService.SetLLMProvider("none", ""); err != nil {
			return fmt.Errorf("disable LLM provider: %w", err)
		}
		cmd.Println("LLM disabled. Answers are composed from matching passages.")
		return nil
	}
	selected := providers[idx-1]

	model := promptModel(cmd, reader, domain.DefaultLLMModels()[selected])
	if err := promptAPIKey(cmd, reader, selected, "llm.api_key"); err != nil {
		return err
	}
	if err := settingsService.SetLLMProvider(selected, model); err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}

	if providerValidator != nil {
		settings, err := settingsService.Load()
		if err != nil {
			return err
		}
		cmd.Print("Validating configuration... ")
		if err := providerValidator.ValidateLLM(cmd.Context(), settings.LLM); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

func promptModel(cmd *cobra.Command, reader *bufio.Reader, defaultModel string) string {
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	if model := readLine(reader); model != "" {
		return model
	}
	return defaultModel
}

// promptAPIKey asks for a key when the provider needs one. An empty answer
// keeps the configured key or the environment variable.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider, key string) error {
	if !provider.RequiresAPIKey() {
		return nil
	}
	cmd.Print("Enter API key (empty keeps the current key): ")
	apiKey := readPassword(reader)
	cmd.Println()
	if apiKey == "" {
		return nil
	}
	return settingsService.Set(key, apiKey)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	if f, ok := settingsInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
