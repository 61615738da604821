package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the purchase tools over MCP on stdio",
	Long: `Serve the purchase tools to an MCP client over stdin/stdout. Logs go
to stderr.

Add to the client configuration:
  {
    "mcpServers": {
      "proofpal": {
        "command": "/path/to/proofpal",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := mcpserver.NewServer(proof.Service, proof.Config.Defaults)
		return server.ServeStdio(s.MCPServer())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
