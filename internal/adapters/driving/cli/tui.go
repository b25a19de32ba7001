package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docqa.

The TUI lets you chat with your documents, run searches and browse
uploaded documents with keyboard navigation.

Controls:
  1-5      - Choose a menu item
  Enter    - Send / Select
  PgUp/Dn  - Scroll the transcript
  Ctrl+N   - New conversation
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

// isTerminal reports whether stdin and stdout are attached to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runProgram runs the bubbletea program until the user quits.
var runProgram = func(app *tui.App) error {
	return app.Run()
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	return startTUI(cmd, messages.ViewMenu, "")
}

// startTUI opens the TUI in view, resuming conversationID when set.
func startTUI(cmd *cobra.Command, view messages.ViewType, conversationID string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	recoverStuck(cmd)

	ports := tui.NewPorts(chatService, searchService, documentService)
	ports.Conversations = conversationService
	ports.OwnerID = owner()

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context()).StartIn(view)

	if conversationID != "" {
		if err := app.ResumeConversation(conversationID); err != nil {
			return fmt.Errorf("resume conversation: %w", err)
		}
	}

	if err := runProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// recoverStuck re-queues documents an earlier process left in processing.
// Long-running commands call it on start.
func recoverStuck(cmd *cobra.Command) {
	if documentService == nil {
		return
	}
	n, err := documentService.Recover(cmd.Context(), owner())
	if err != nil {
		log.Warn("recovering interrupted documents failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("re-queued interrupted documents", "count", n)
	}
}
