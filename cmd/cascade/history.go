package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/cli"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show audited compositions",
	Long: `List compositions recorded in the audit database (audit.path), newest
first. Records are written by every command when audit.enabled is set.

Examples:
  cascade history --limit 10
  cascade history prune`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than audit.retention.days",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of records (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a := current
	store, err := a.openAudit()
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return a.printer.History(records, time.Now())
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	a := current
	if a.cfg.Audit.Retention.Days <= 0 {
		return cli.NewExitError(cli.ExitUsage, fmt.Errorf("audit.retention.days is 0, records are kept forever"))
	}

	store, err := a.openAudit()
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}
	defer store.Close()

	scheduler := audit.NewScheduler(store, audit.RetentionPolicy{Days: a.cfg.Audit.Retention.Days})
	deleted, err := scheduler.RunOnce(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d record(s) older than %d days\n", deleted, a.cfg.Audit.Retention.Days)
	return nil
}
