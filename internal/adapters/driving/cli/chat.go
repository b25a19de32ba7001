package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a question about your documents",
	Long: `Ask a question and get an answer with the passages it is based on.

Use --conversation to continue an earlier conversation. Without a message the
interactive chat opens on a terminal; otherwise the message is read from
standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

var (
	chatConversation string

	// chatInput is read when no message argument is given off a terminal.
	chatInput io.Reader = os.Stdin
)

func init() {
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "conversation ID to continue")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("%w: chat", errNotConfigured)
	}

	var message string
	switch {
	case len(args) == 1:
		message = args[0]
	case isTerminal():
		return startTUI(cmd, messages.ViewChat, chatConversation)
	default:
		data, err := io.ReadAll(chatInput)
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		message = string(data)
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	resp, err := chatService.Chat(cmd.Context(), driving.ChatRequest{
		OwnerID:        owner(),
		Message:        message,
		ConversationID: chatConversation,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, resp)
	}
	printChatResponse(cmd, resp)
	return nil
}

func printChatResponse(cmd *cobra.Command, resp *driving.ChatResponse) {
	cmd.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range resp.Citations {
			title := c.DocumentTitle
			if title == "" {
				title = c.DocumentID
			}
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, c.Score)
			if c.Preview != "" {
				cmd.Printf("      %s\n", preview(c.Preview, 100))
			}
		}
	}
	cmd.Println()
	cmd.Printf("Conversation: %s\n", resp.ConversationID)
}
