package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose Drive retrieval to AI assistants over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run a Model Context Protocol server backed by the ingestion index.

Without --addr the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants expect. With --addr it serves the streamable HTTP
transport instead.

Tools: drive_retrieve, drive_status, drive_retry.
Resources: drive://users/{userId}/files, drive://users/{userId}/chunks/{chunkId}.`,
	Example: `  sercha-drive mcp serve
  sercha-drive mcp serve --addr 127.0.0.1:8090`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: s.Retrieval,
		Ingestion: s.Ingestion,
	})
	if err != nil {
		return err
	}

	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}
	// stdout is free in HTTP mode.
	cmd.Printf("MCP server listening on http://%s\n", mcpAddr)
	return server.RunHTTP(cmd.Context(), mcpAddr)
}
