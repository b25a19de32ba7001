package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload new files dropped into a directory",
	Long: `Watch a directory and upload PDF, Word, Markdown and text files as they
appear or change. Files are uploaded once they have stopped changing.

Use --existing to also upload the files already in the directory.
Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchExisting bool
	watchSettle   time.Duration
)

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "upload files already in the directory")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", filesystem.DefaultSettle, "quiet period before a changed file is uploaded")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("%w: documents", errNotConfigured)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recoverStuck(cmd)

	w := filesystem.New(filesystem.ResolvePath(args[0]),
		filesystem.WithSettle(watchSettle),
		filesystem.WithLogger(log),
	)

	if watchExisting {
		existing, err := w.Existing()
		if err != nil {
			return err
		}
		for _, path := range existing {
			watchUpload(cmd, path)
		}
	}

	paths, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())

	for path := range paths {
		watchUpload(cmd, path)
	}
	cmd.Println("Stopped watching.")
	return nil
}

func watchUpload(cmd *cobra.Command, path string) {
	res, err := uploadFile(cmd.Context(), path, "")
	if err != nil {
		cmd.PrintErrf("%s: %s\n", path, Describe(err))
		return
	}
	log.Info("uploaded watched file", "path", path, "document_id", res.Document.ID)
	cmd.Printf("Uploaded %s as %s\n", path, res.Document.ID)
}
