package cmd

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "github.com/omnitrack/omnitrack/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server over stdio, exposing the
track_* tool set for AI assistants. Diagnostic output goes to stderr so
stdout stays clean for the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	var adv mcpserver.Advisor
	if c := getAdvisor(); c != nil {
		adv = c
	}

	return mcpserver.NewServer(s, adv).ServeStdio(context.Background())
}
