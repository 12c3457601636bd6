package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/mcp"
	"github.com/joescharf/reviewlens/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

The server holds one review ledger for the lifetime of the process.
Configure it in an MCP client with:

  {
    "mcpServers": {
      "reviewlens": { "command": "reviewlens", "args": ["mcp"] }
    }
  }

Available tools: review_add, review_list, review_summary, review_export`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		ui.Out = os.Stderr

		s, err := store.New(viper.GetString("ledger.backend"))
		if err != nil {
			return err
		}
		l := ledger.New(s, newExtractor(), ledgerOptions())
		defer l.Close()

		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
		defer stop()

		srv := mcp.NewServer(l, buildVersion, viper.GetInt("review.default_rating"))
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
