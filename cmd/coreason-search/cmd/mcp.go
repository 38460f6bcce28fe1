package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CoReason-AI/coreason-search/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Serve the search tool over the Model Context Protocol.

Speaks JSON-RPC on stdin/stdout for use as an MCP server in editors
and agent runtimes. All diagnostics go to stderr and the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			srv, err := mcp.NewServer(app.engine, app.logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
