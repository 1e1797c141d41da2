package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"showkeeper/internal/logging"
	"showkeeper/internal/notifications"
	"showkeeper/internal/scan"
	"showkeeper/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run, then rerun whenever show folders or catalogue exports change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			runCtx, stop := signalContext(cmd)
			defer stop()

			notifier := notifications.NewService(cfg)
			trigger := func(ctx context.Context) error {
				report, residual, err := runner.ScanAndRun(ctx)
				if err != nil {
					if !errors.Is(err, scan.ErrLocked) && ctx.Err() == nil {
						if notifyErr := notifier.NotifyError(ctx, err, "watch"); notifyErr != nil {
							logger.Warn("error notification failed", logging.Error(notifyErr))
						}
					}
					return describeRunnerError(err)
				}
				logger.Info("reconcile finished",
					logging.String(logging.FieldEventType, "watch_reconcile_finished"),
					logging.String(logging.FieldCorrelationID, report.ScanID),
					logging.Int("missing", report.Missing()),
					logging.Int("actions", len(report.Actions)),
					logging.Int("incomplete", len(residual)),
				)
				return nil
			}

			w, err := watch.New(watch.OptionsFromConfig(cfg), logger)
			if err != nil {
				return err
			}
			if !skipInitial {
				if err := trigger(runCtx); err != nil {
					_ = w.Close()
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d folder(s); press Ctrl+C to stop\n", w.Watched())
			return w.Run(runCtx, trigger)
		},
	}
	cmd.Flags().BoolVar(&skipInitial, "no-initial-run", false, "Wait for the first change instead of running immediately")
	return cmd
}
