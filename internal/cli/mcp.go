package cli

import (
	"github.com/jwulff/calo/internal/mcpserver"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the food log to MCP clients over stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
day, week and month summaries and tools to log, edit and delete entries.
Logs go to the configured log file since stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(true)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := mcpserver.New(e.store, e.pipeline, e.state, e.log.Named("mcp"), rootCmd.Version)
		return srv.ServeStdio()
	},
}
