package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent run and the actions it could not complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			last, err := st.LastScan(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if last == nil {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"scan": nil})
				}
				fmt.Fprintln(out, "No scans recorded")
				return nil
			}
			failures, err := st.Failures(cmd.Context(), last.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{"scan": last, "failures": failures})
			}

			colorize := shouldColorize(out)
			writeSection(out, "Last scan", colorize)
			finished := "still running"
			if !last.FinishedAt.IsZero() {
				finished = humanize.Time(last.FinishedAt)
			}
			rows := [][]string{
				{"ID", last.ID},
				{"Started", last.StartedAt.Local().Format(time.DateTime) + " (" + humanize.Time(last.StartedAt) + ")"},
				{"Finished", finished},
				{"Shows", fmt.Sprintf("%d", last.Shows)},
				{"Missing", fmt.Sprintf("%d", last.Missing)},
				{"Duplicates", fmt.Sprintf("%d", last.Duplicates)},
				{"Proposed", fmt.Sprintf("%d", last.Proposed)},
				{"Incomplete", fmt.Sprintf("%d", last.Residual)},
				{"Cancelled", yesNo(last.Cancelled)},
			}
			fmt.Fprintln(out, renderTable(colorize, []string{"Field", "Value"}, rows))

			if len(failures) > 0 {
				frows := make([][]string, 0, len(failures))
				for _, f := range failures {
					frows = append(frows, []string{f.Kind, f.Name, f.Error})
				}
				fmt.Fprintln(out, renderTable(colorize, []string{"Kind", "Action", "Error"}, frows))
			}
			return nil
		},
	}
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete scan history older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			n, err := st.PruneScans(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d scan(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the oldest scan to keep")
	return cmd
}
