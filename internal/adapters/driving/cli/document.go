package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage uploaded documents",
	Long:    `List, inspect, download, delete or reprocess uploaded documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise documents by processing status",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsStatus,
}

var documentsContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print the extracted text of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsContent,
}

var documentsDownloadCmd = &cobra.Command{
	Use:   "download [doc-id]",
	Short: "Save the original uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDownload,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its chunks and citations",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Extract, chunk and embed a document again",
	Long: `Re-run processing for a document, for example after changing the
embedding model. Citations pointing at the old chunks are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsReprocess,
}

var documentsRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-queue documents left processing by an interrupted run",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsRecover,
}

var (
	listSkip       int
	listLimit      int
	downloadOutput string
	reprocessWait  bool
)

func init() {
	documentsListCmd.Flags().IntVar(&listSkip, "skip", 0, "number of documents to skip")
	documentsListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of documents (0 = all)")
	documentsDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output path (default: original filename)")
	documentsReprocessCmd.Flags().BoolVarP(&reprocessWait, "wait", "w", false, "wait for processing and report the result")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsStatusCmd)
	documentsCmd.AddCommand(documentsContentCmd)
	documentsCmd.AddCommand(documentsDownloadCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsReprocessCmd)
	documentsCmd.AddCommand(documentsRecoverCmd)
	rootCmd.AddCommand(documentsCmd)
}

// documentJSON is the machine-readable form of a document.
type documentJSON struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDocumentJSON(d domain.Document) documentJSON {
	return documentJSON{
		ID:         d.ID,
		Title:      d.Title,
		Filename:   d.Filename,
		FileType:   d.FileType.String(),
		FileSize:   d.FileSize,
		Status:     d.Status.String(),
		Error:      d.Error,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	docs, err := documentService.List(cmd.Context(), owner(), listSkip, listLimit)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if jsonOutput {
		out := make([]documentJSON, 0, len(docs))
		for i := range docs {
			out = append(out, toDocumentJSON(docs[i]))
		}
		return printJSON(cmd, out)
	}

	if len(docs) == 0 {
		cmd.Println("No documents uploaded. Use 'docqa upload <file>' to add one.")
		return nil
	}

	rows := make([][]string, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		rows = append(rows, []string{
			d.ID,
			preview(d.Title, 40),
			d.FileType.String(),
			d.Status.String(),
			strconv.Itoa(d.ChunkCount),
			formatTime(d.CreatedAt),
		})
	}
	printTable(cmd, []string{"ID", "TITLE", "TYPE", "STATUS", "CHUNKS", "UPLOADED"}, rows)
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	doc, err := documentService.Get(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, toDocumentJSON(*doc))
	}

	cmd.Printf("ID:       %s\n", doc.ID)
	cmd.Printf("Title:    %s\n", doc.Title)
	cmd.Printf("File:     %s (%s, %s)\n", doc.Filename, doc.FileType, humanBytes(doc.FileSize))
	cmd.Printf("Status:   %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("Error:    %s\n", doc.Error)
	}
	cmd.Printf("Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("Uploaded: %s\n", formatTime(doc.CreatedAt))
	cmd.Printf("Updated:  %s\n", formatTime(doc.UpdatedAt))
	return nil
}

func runDocumentsStatus(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	summary, err := documentService.Summary(cmd.Context(), owner())
	if err != nil {
		return fmt.Errorf("summarise documents: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, map[string]int{
			"total":      summary.Total,
			"completed":  summary.Completed,
			"processing": summary.Processing,
			"failed":     summary.Failed,
		})
	}

	cmd.Printf("Total:      %d\n", summary.Total)
	cmd.Printf("Completed:  %d\n", summary.Completed)
	cmd.Printf("Processing: %d\n", summary.Processing)
	cmd.Printf("Failed:     %d\n", summary.Failed)
	for i := range summary.Documents {
		d := &summary.Documents[i]
		if d.Status == domain.StatusFailed {
			cmd.Printf("  %s %s: %s\n", d.ID, d.Title, d.Error)
		}
	}
	return nil
}

func runDocumentsContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	content, err := documentService.GetContent(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("get content: %w", err)
	}
	cmd.Println(content)
	return nil
}

func runDocumentsDownload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	rc, doc, err := documentService.Open(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer rc.Close()

	path := downloadOutput
	if path == "" {
		path = doc.Filename
	}
	if path == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), rc)
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	cmd.Printf("Saved %s (%s)\n", path, humanBytes(n))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	if err := documentService.Delete(cmd.Context(), owner(), args[0]); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runDocumentsReprocess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	done, err := documentService.Reprocess(cmd.Context(), owner(), args[0])
	if err != nil {
		return fmt.Errorf("reprocess document: %w", err)
	}
	if !reprocessWait {
		cmd.Printf("Queued document %s for processing\n", args[0])
		return nil
	}
	printOutcome(cmd, args[0], waitIngestion(cmd.Context(), done))
	return nil
}

func runDocumentsRecover(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	n, err := documentService.Recover(cmd.Context(), owner())
	if err != nil {
		return fmt.Errorf("recover documents: %w", err)
	}
	cmd.Printf("Re-queued %d document(s)\n", n)
	return nil
}
