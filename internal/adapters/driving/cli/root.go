// Package cli provides the docqa command line interface.
// It is a driving adapter: commands translate flags and arguments into calls
// on the driving ports and render the results.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// errNotConfigured is returned when a command runs without its service.
var errNotConfigured = errors.New("service not configured")

// Services holds the driving ports the commands call.
type Services struct {
	Chat          driving.ChatService
	Conversations driving.ConversationService
	Documents     driving.DocumentService
	Search        driving.SearchService
	Settings      driving.SettingsService
	Validator     driven.AIConfigValidator
	Logger        *logger.Logger

	// OwnerID is the configured user; --user overrides it.
	OwnerID string

	// Close releases the services once the command finished.
	Close func()
}

// Options are the global flags a Bootstrap receives.
type Options struct {
	Verbose bool
	User    string
}

// Bootstrap builds the services after flags are parsed. It may return
// partial services together with an error when only the configuration is
// usable; settings commands then still run.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	chatService         driving.ChatService
	conversationService driving.ConversationService
	documentService     driving.DocumentService
	searchService       driving.SearchService
	settingsService     driving.SettingsService
	providerValidator   driven.AIConfigValidator
	log                 = logger.Nop()
	configuredOwner     string
	closeServices       func()

	bootstrap     Bootstrap
	servicesReady bool
)

// Global flags.
var (
	verbose    bool
	userFlag   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Chat with your documents",
	Long: `docqa ingests PDF, Word, Markdown and text files, splits them into
passages and answers questions about them with cited sources.

Run without arguments on a terminal to open the interactive interface.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepareServices,
	PersistentPostRun: func(*cobra.Command, []string) {
		releaseServices()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if isTerminal() {
			return runTUI(cmd, args)
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user scope for documents and conversations")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON where supported")
}

// SetServices injects ready services, bypassing the Bootstrap.
func SetServices(s *Services) {
	if s == nil {
		chatService, conversationService, documentService = nil, nil, nil
		searchService, settingsService, providerValidator = nil, nil, nil
		log, configuredOwner, closeServices = logger.Nop(), "", nil
		servicesReady = false
		return
	}
	chatService = s.Chat
	conversationService = s.Conversations
	documentService = s.Documents
	searchService = s.Search
	settingsService = s.Settings
	providerValidator = s.Validator
	log = logger.OrNop(s.Logger)
	configuredOwner = s.OwnerID
	closeServices = s.Close
	servicesReady = true
}

// SetBootstrap sets the function that builds services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
		mcp.Version = v
	}
}

// Execute runs the root command with output on stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// noServices marks commands that run without building services.
const noServices = "no-services"

func prepareServices(cmd *cobra.Command, _ []string) error {
	if servicesReady || bootstrap == nil || cmd.Annotations[noServices] == "true" {
		return nil
	}
	s, err := bootstrap(cmd.Context(), Options{Verbose: verbose, User: userFlag})
	if s != nil {
		SetServices(s)
	}
	if err != nil && !(s != nil && isSettingsCommand(cmd)) {
		releaseServices()
		return err
	}
	if err != nil {
		log.Warn("configuration is invalid; only settings commands are available", "error", err)
	}
	return nil
}

func releaseServices() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

func isSettingsCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == settingsCmd {
			return true
		}
	}
	return false
}

// owner returns the user scope for the current command.
func owner() string {
	switch {
	case userFlag != "":
		return userFlag
	case configuredOwner != "":
		return configuredOwner
	default:
		return domain.DefaultOwnerID
	}
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// Describe turns an error into the message shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotFound):
		return "not found: no such document or conversation for this user"
	case errors.Is(err, domain.ErrUnsupportedInput):
		return fmt.Sprintf("unsupported file: only PDF, DOCX, Markdown and text files are accepted (%v)", err)
	case errors.Is(err, domain.ErrTransaction):
		return "chat error: the answer could not be saved, please try again"
	case errors.Is(err, domain.ErrIngestionInProgress):
		return "the document is already being processed"
	case errors.Is(err, errNotConfigured):
		return "docqa is not configured: " + err.Error()
	default:
		return err.Error()
	}
}
