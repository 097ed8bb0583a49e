package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/trakt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errortypes.LogError(slog.Default(), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traktmcp",
		Short: "Trakt.tv MCP server",
		Long: "traktmcp exposes a Trakt.tv account to MCP clients over stdio: watch history, " +
			"watchlist, search, trending shows and episodes.",
		RunE: runServe,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to the JSON config file (default: .traktmcpconfig)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug | info | warn | error")
	cmd.PersistentFlags().String("log-format", "", "Log format: text | json")

	cmd.Version = trakt.Version
	cmd.SetVersionTemplate(fmt.Sprintf("traktmcp version %s\n", trakt.Version))

	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newJournalCmd())
	return cmd
}
