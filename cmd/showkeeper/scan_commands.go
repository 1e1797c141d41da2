package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"showkeeper/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showKeys bool

	cmd := &cobra.Command{
		Use:   "scan [show-id...]",
		Short: "Report missing episodes, duplicates, and proposed actions without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			runCtx, stop := signalContext(cmd)
			defer stop()

			report, err := runner.Scan(runCtx, args...)
			if err != nil {
				return describeRunnerError(err)
			}
			view := buildReportView(report)
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			printReport(out, view, showKeys, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	cmd.Flags().BoolVar(&showKeys, "keys", false, "Show action keys for use with `showkeeper ignore add`")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showKeys bool

	cmd := &cobra.Command{
		Use:   "run [show-id...]",
		Short: "Scan and apply every proposed action that is not ignored",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			runCtx, stop := signalContext(cmd)
			defer stop()

			report, residual, err := runner.ScanAndRun(runCtx, args...)
			if err != nil {
				return describeRunnerError(err)
			}
			view := buildReportView(report)
			view.Actions = view.Actions[:0]
			for _, a := range report.Actions {
				view.Actions = append(view.Actions, newActionView(a, true))
			}
			for _, a := range residual {
				view.Residual = append(view.Residual, newActionView(a, true))
			}
			if jsonOutput {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				printRunResult(cmd, view, showKeys)
			}
			if len(residual) > 0 {
				return fmt.Errorf("%d action(s) did not complete", len(residual))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report and outcomes as JSON")
	cmd.Flags().BoolVar(&showKeys, "keys", false, "Show action keys for use with `showkeeper ignore add`")
	return cmd
}

func printRunResult(cmd *cobra.Command, view reportView, showKeys bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if len(view.Actions) == 0 {
		fmt.Fprintln(out, "Library is up to date")
		return
	}
	writeSection(out, "Actions", colorize)
	fmt.Fprintln(out, renderActions(view.Actions, showKeys, true, colorize))
	done := len(view.Actions) - len(view.Residual)
	summary := fmt.Sprintf("%d of %d action(s) completed", done, len(view.Actions))
	kind := statusOK
	if len(view.Residual) > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, paint(summary, kind, colorize))
}

func describeRunnerError(err error) error {
	if errors.Is(err, scan.ErrLocked) {
		return fmt.Errorf("%w; wait for it to finish or stop `showkeeper watch`", err)
	}
	return err
}
