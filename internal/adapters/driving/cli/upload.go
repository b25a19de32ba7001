package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]...",
	Short: "Upload documents",
	Long: `Upload one or more PDF, Word (.docx), Markdown or text files.

Each file is stored and queued for processing. Processing finishes before the
command exits; use --wait to print the outcome of each file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var (
	uploadTitle string
	uploadWait  bool
)

func init() {
	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "document title (single file only)")
	uploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "wait for processing and report the result")
	rootCmd.AddCommand(uploadCmd)
}

type uploaded struct {
	result *driving.UploadResult
	path   string
}

func runUpload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}
	if uploadTitle != "" && len(args) > 1 {
		return fmt.Errorf("%w: --title applies to a single file", domain.ErrInvalidInput)
	}

	var (
		queued []uploaded
		errs   []error
	)
	for _, path := range args {
		res, err := uploadFile(cmd.Context(), path, uploadTitle)
		if err != nil {
			cmd.PrintErrf("%s: %s\n", path, Describe(err))
			errs = append(errs, err)
			continue
		}
		queued = append(queued, uploaded{result: res, path: path})
		if !jsonOutput {
			cmd.Printf("Uploaded %s as %s (%s)\n", path, res.Document.ID, res.Document.Status)
		}
	}

	results := make([]documentJSON, 0, len(queued))
	for _, u := range queued {
		doc := u.result.Document
		if uploadWait {
			outcome := waitIngestion(cmd.Context(), u.result.Done)
			doc.Status, doc.ChunkCount = outcome.Status, outcome.ChunkCount
			if outcome.Err != nil {
				doc.Error = outcome.Err.Error()
			}
			if !jsonOutput {
				printOutcome(cmd, u.path, outcome)
			}
		}
		results = append(results, toDocumentJSON(doc))
	}

	if jsonOutput {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// uploadFile streams one local file to the document service.
func uploadFile(ctx context.Context, path, title string) (*driving.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	name := filepath.Base(path)
	log.Debug("uploading file", "path", path, "size", info.Size())
	return documentService.Upload(ctx, driving.UploadRequest{
		OwnerID:     owner(),
		Filename:    name,
		Title:       title,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        info.Size(),
		Body:        f,
	})
}

// waitIngestion blocks until the run reports or ctx ends.
func waitIngestion(ctx context.Context, done <-chan domain.IngestionResult) domain.IngestionResult {
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return domain.IngestionResult{Status: domain.StatusProcessing, Err: ctx.Err()}
	}
}

func printOutcome(cmd *cobra.Command, name string, res domain.IngestionResult) {
	switch {
	case res.Status == domain.StatusCompleted:
		cmd.Printf("%s: completed, %d chunks\n", name, res.ChunkCount)
	case res.Err != nil:
		cmd.Printf("%s: %s: %v\n", name, res.Status, res.Err)
	default:
		cmd.Printf("%s: %s\n", name, res.Status)
	}
}
