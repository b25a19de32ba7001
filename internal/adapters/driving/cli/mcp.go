package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the search, chat, list_documents and get_document tools and
a docqa://documents/{id} resource with each document's extracted text.

By default, the server communicates over stdio using JSON-RPC. Use --http to
serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  docqa mcp

  # HTTP mode (for MCP Inspector, remote access)
  docqa mcp --http localhost:8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpHTTPAddr string

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	recoverStuck(cmd)

	server, err := mcp.NewServer(&mcp.Ports{
		Search:   searchService,
		Chat:     chatService,
		Document: documentService,
		OwnerID:  owner(),
	}, log)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
