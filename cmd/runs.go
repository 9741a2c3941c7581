package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/archway-labs/scout-cli/internal/audit"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent discovery and crawl runs from the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Audit.Driver != "sqlite" {
			return eris.Errorf("runs listing requires the sqlite audit driver, got %q", cfg.Audit.Driver)
		}

		sink, err := audit.NewSQLite(ctx, cfg.Audit.SQLitePath)
		if err != nil {
			return eris.Wrap(err, "open audit db")
		}
		defer sink.Close() //nolint:errcheck

		entries, err := sink.RecentRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTRATEGY\tDEGRADED\tRECORDS\tDURATION\tWHEN")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%s\t%s\n",
				e.ID, e.Kind, e.Strategy, e.Degraded, e.RecordCount,
				(time.Duration(e.DurationMS) * time.Millisecond).String(),
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
