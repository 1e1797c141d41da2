package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	ignoreCmd := &cobra.Command{
		Use:   "ignore",
		Short: "Maintain the list of actions that are never proposed",
	}
	ignoreCmd.AddCommand(newIgnoreAddCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreProposedCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreListCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreRemoveCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreClearCommand(ctx))
	return ignoreCmd
}

func newIgnoreAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <key>...",
		Short: "Ignore actions by key (see `showkeeper scan --keys`)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range args {
				key = strings.TrimSpace(key)
				if !strings.Contains(key, "|") {
					return fmt.Errorf("invalid action key %q (expected kind|target)", key)
				}
				if err := st.AddIgnore(cmd.Context(), key, name); err != nil {
					return err
				}
				fmt.Fprintf(out, "Ignoring %s\n", key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "note", "", "Description stored with the entry")
	return cmd
}

func newIgnoreProposedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "proposed [show-id...]",
		Short: "Scan and ignore every action currently proposed",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			report, err := runner.Scan(cmd.Context(), args...)
			if err != nil {
				return describeRunnerError(err)
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			for _, a := range report.Actions {
				if err := st.AddIgnore(cmd.Context(), a.Key(), a.Name()); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ignored %d proposed action(s)\n", len(report.Actions))
			return nil
		},
	}
}

func newIgnoreListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ignored actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			entries, err := st.ListIgnored(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				type jsonEntry struct {
					Key     string `json:"key"`
					Note    string `json:"note,omitempty"`
					AddedAt string `json:"added_at"`
				}
				items := make([]jsonEntry, 0, len(entries))
				for _, e := range entries {
					items = append(items, jsonEntry{Key: e.Key, Note: e.Name, AddedAt: e.AddedAt.Format("2006-01-02T15:04:05Z07:00")})
				}
				return writeJSON(cmd, map[string]any{"entries": items})
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Ignore list is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Key, e.Name, e.AddedAt.Local().Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(out, renderTable(shouldColorize(out), []string{"Key", "Note", "Added"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newIgnoreRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>...",
		Short: "Stop ignoring actions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range args {
				removed, err := st.RemoveIgnore(cmd.Context(), strings.TrimSpace(key))
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Removed %s\n", key)
				} else {
					fmt.Fprintf(out, "%s was not ignored\n", key)
				}
			}
			return nil
		},
	}
}

func newIgnoreClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every ignore entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			n, err := st.ClearIgnored(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d ignore entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
