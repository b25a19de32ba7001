package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conversation", "conv"},
	Short:   "Manage chat conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Print a conversation with its citations",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

var (
	convSkip  int
	convLimit int
)

func init() {
	conversationsListCmd.Flags().IntVar(&convSkip, "skip", 0, "number of conversations to skip")
	conversationsListCmd.Flags().IntVar(&convLimit, "limit", 20, "maximum number of conversations")

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}

type conversationJSON struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []messageJSON `json:"messages,omitempty"`
}

type messageJSON struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Citations []citationJSON `json:"citations,omitempty"`
}

type citationJSON struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
}

func toConversationJSON(c domain.Conversation, msgs []domain.Message) conversationJSON {
	out := conversationJSON{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	for i := range msgs {
		m := &msgs[i]
		mj := messageJSON{ID: m.ID, Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt}
		for _, c := range m.Citations {
			mj.Citations = append(mj.Citations, citationJSON{DocumentID: c.DocumentID, ChunkID: c.ChunkID, Score: c.Score})
		}
		out.Messages = append(out.Messages, mj)
	}
	return out
}

func runConversationsList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return fmt.Errorf("%w: conversations", errNotConfigured)
	}
	convs, err := conversationService.List(cmd.Context(), owner(), convSkip, convLimit)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if jsonOutput {
		out := make([]conversationJSON, 0, len(convs))
		for i := range convs {
			out = append(out, toConversationJSON(convs[i], nil))
		}
		return printJSON(cmd, out)
	}

	if len(convs) == 0 {
		cmd.Println("No conversations yet. Start one with 'docqa chat <question>'.")
		return nil
	}
	rows := make([][]string, 0, len(convs))
	for i := range convs {
		rows = append(rows, []string{convs[i].ID, preview(convs[i].Title, 50), formatTime(convs[i].UpdatedAt)})
	}
	printTable(cmd, []string{"ID", "TITLE", "UPDATED"}, rows)
	return nil
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return fmt.Errorf("%w: conversations", errNotConfigured)
	}
	conv, err := conversationService.Get(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	msgs, err := conversationService.Messages(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("get messages: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, toConversationJSON(*conv, msgs))
	}

	cmd.Printf("%s\n%s\n\n", conv.Title, formatTime(conv.CreatedAt))
	for i := range msgs {
		m := &msgs[i]
		label := "You"
		if m.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		cmd.Printf("%s: %s\n", label, m.Content)
		for j, c := range m.Citations {
			cmd.Printf("  [%d] document %s, chunk %s (%.3f)\n", j+1, c.DocumentID, c.ChunkID, c.Score)
		}
		cmd.Println()
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return fmt.Errorf("%w: conversations", errNotConfigured)
	}
	if err := conversationService.Delete(cmd.Context(), owner(), args[0]); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	cmd.Printf("Deleted conversation %s\n", args[0])
	return nil
}
