package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	searchLimit  int
	searchHybrid bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search uploaded documents",
	Long: `Ranks passages of your completed documents against the query.

Scores combine embedding similarity with keyword matches. Queries that mention
a configured phrase (for example "machine learning") return exact phrase
matches only. Use --hybrid to add a secondary keyword pass.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "merge a secondary keyword pass into the results")
	rootCmd.AddCommand(searchCmd)
}

// searchResultJSON is the machine-readable form of a result.
type searchResultJSON struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkID       string  `json:"chunk_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Score         float64 `json:"score"`
	Content       string  `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return fmt.Errorf("%w: search", errNotConfigured)
	}

	results, err := searchService.Search(cmd.Context(), owner(), args[0], domain.SearchOptions{
		Limit:  searchLimit,
		Hybrid: searchHybrid,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, searchResultJSON{
			DocumentID:    r.Document.ID,
			DocumentTitle: r.Document.Title,
			ChunkID:       r.Chunk.ID,
			ChunkIndex:    r.Chunk.Index,
			Score:         r.Score,
			Content:       r.Chunk.Content,
		})
	}
	return printJSON(cmd, out)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	rows := make([][]string, 0, len(results))
	for i := range results {
		r := &results[i]
		title := r.Document.Title
		if title == "" {
			title = r.Document.ID
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.3f", r.Score),
			preview(title, 30),
			strconv.Itoa(r.Chunk.Index),
			preview(r.Chunk.Content, 60),
		})
	}
	cmd.Printf("Results (%d):\n", len(results))
	printTable(cmd, []string{"#", "SCORE", "DOCUMENT", "CHUNK", "TEXT"}, rows)
}
