package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/journal"
	"github.com/localrivet/traktmcp/internal/tools"
	"github.com/localrivet/traktmcp/internal/trakt"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools this server exposes",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	cmd.Flags().Bool("schemas", false, "Print each tool's parameter schema as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	withSchemas, _ := cmd.Flags().GetBool("schemas")
	out := cmd.OutOrStdout()

	if withSchemas {
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			InputSchema any    `json:"inputSchema"`
		}
		var entries []entry
		for _, def := range tools.Catalog() {
			entries = append(entries, entry{Name: def.Name, Description: def.Description, InputSchema: def.Schema})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, def := range tools.Catalog() {
		fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
	}
	return w.Flush()
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file template",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultConfigFilename
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return errortypes.ConfigurationError(nil, fmt.Sprintf("%s already exists, use --force to overwrite", path))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errortypes.ConfigurationError(err, "failed to stat "+path)
	}

	if err := config.NewConfig().SaveToFile(path); err != nil {
		return errortypes.ConfigurationError(err, "failed to write config template")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Fill in trakt.client_id and trakt.access_token, "+
		"or set TRAKT_CLIENT_ID and TRAKT_ACCESS_TOKEN.\n", path)
	return nil
}

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent tool invocations from the journal",
		Args:  cobra.NoArgs,
		RunE:  runJournal,
	}
	cmd.Flags().Int("limit", 20, "Number of invocations to show")
	cmd.Flags().String("path", "", "Journal database path (default: journal.path from config)")
	cmd.Flags().Bool("health", false, "Print a health report over the last --limit invocations as JSON")
	return cmd
}

func runJournal(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return errortypes.ConfigurationError(nil, "journal disabled: set TRAKT_JOURNAL_PATH or pass --path")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return errortypes.ValidationError(nil, "--limit must be positive")
	}

	j, err := journal.OpenSQLite(path)
	if err != nil {
		return errortypes.ConfigurationError(err, "failed to open journal")
	}
	defer j.Close()

	invocations, err := j.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if health, _ := cmd.Flags().GetBool("health"); health {
		report, err := journal.BuildHealthReport(invocations, trakt.Version, time.Now()).JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTOOL\tSTATUS\tKIND\tDURATION\tID")
	for _, inv := range invocations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.StartedAt.Format(time.RFC3339), inv.Tool, inv.Status, inv.Kind,
			inv.Duration.Round(time.Microsecond), inv.ID)
	}
	return w.Flush()
}
