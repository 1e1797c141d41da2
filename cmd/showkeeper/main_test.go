package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"showkeeper/internal/catalogue"
	"showkeeper/internal/config"
	"showkeeper/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	showDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithShow(config.Show{ID: "show", Name: "Show"}))
	cfg.Logging.Level = "error"
	t.Setenv("HOME", testsupport.BaseDir(cfg))

	series := testsupport.NewSeries("show", "Show", map[int]int{1: 3}, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := catalogue.NewStore(cfg.Paths.CatalogueDir, nil).Put(series); err != nil {
		t.Fatalf("Put: %v", err)
	}
	showDir := filepath.Join(cfg.Paths.LibraryDir, "Show")
	testsupport.WriteFile(t, filepath.Join(showDir, "Season 01", "Show - S01E01 - Chapter 1.mkv"), 10)
	testsupport.WriteFile(t, filepath.Join(showDir, "show.s01e02.mkv"), 10)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, showDir: showDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), args, configPath)
}

func runCLIContext(t *testing.T, ctx context.Context, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func scanJSON(t *testing.T, env *cliTestEnv) reportView {
	t.Helper()
	out, _, err := runCLI(t, []string{"scan", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}
	var view reportView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	return view
}

func TestScanReportsMissingAndProposals(t *testing.T) {
	env := setupCLITestEnv(t)

	view := scanJSON(t, env)
	if len(view.Shows) != 1 || view.Shows[0].ID != "show" {
		t.Fatalf("unexpected shows: %+v", view.Shows)
	}
	missing := view.Shows[0].Missing
	if len(missing) != 1 || missing[0].Episode != "S01E03" || missing[0].Title != "Chapter 3" {
		t.Fatalf("unexpected missing list: %+v", missing)
	}
	if len(view.Actions) != 1 || view.Actions[0].Kind != "move" {
		t.Fatalf("expected one move, got %+v", view.Actions)
	}
	if !strings.HasPrefix(view.Actions[0].Key, "move|") {
		t.Fatalf("unexpected key %q", view.Actions[0].Key)
	}

	out, _, err := runCLI(t, []string{"scan", "--keys"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "S01E03")
	requireContains(t, out, "1 action(s) proposed")
	requireContains(t, out, view.Actions[0].Key)

	if _, err := os.Stat(filepath.Join(env.showDir, "show.s01e02.mkv")); err != nil {
		t.Fatalf("scan must not change the library: %v", err)
	}
}

func TestScanUnknownShow(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"scan", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown show to fail")
	}
}

func TestRunAppliesActionsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "1 of 1 action(s) completed")
	if _, err := os.Stat(filepath.Join(env.showDir, "Season 01", "Show - S01E02 - Chapter 2.mkv")); err != nil {
		t.Fatalf("expected renamed file: %v", err)
	}

	out, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Library is up to date")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Last scan")
	requireContains(t, out, "Proposed")

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 scan(s)")
}

func TestIgnoreLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ignore", "proposed"}, env.configPath)
	if err != nil {
		t.Fatalf("ignore proposed: %v", err)
	}
	requireContains(t, out, "Ignored 1 proposed action(s)")

	view := scanJSON(t, env)
	if len(view.Actions) != 0 || view.Ignored != 1 {
		t.Fatalf("expected the move to be ignored, got %d actions, %d ignored", len(view.Actions), view.Ignored)
	}

	out, _, err = runCLI(t, []string{"ignore", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("ignore list: %v", err)
	}
	requireContains(t, out, "move|")

	out, _, err = runCLI(t, []string{"ignore", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("ignore clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 ignore entry")

	if view := scanJSON(t, env); len(view.Actions) != 1 {
		t.Fatalf("expected the move to be proposed again, got %d", len(view.Actions))
	}
}

func TestIgnoreAddAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"ignore", "add", "not-a-key"}, env.configPath); err == nil {
		t.Fatal("expected malformed key to be rejected")
	}
	key := "delete_file|" + filepath.Join(env.showDir, "sample.mkv")
	out, _, err := runCLI(t, []string{"ignore", "add", "--note", "keep sample", key}, env.configPath)
	if err != nil {
		t.Fatalf("ignore add: %v", err)
	}
	requireContains(t, out, "Ignoring "+key)

	out, _, err = runCLI(t, []string{"ignore", "remove", key, "missing|x"}, env.configPath)
	if err != nil {
		t.Fatalf("ignore remove: %v", err)
	}
	requireContains(t, out, "Removed "+key)
	requireContains(t, out, "missing|x was not ignored")
}

func TestConfigInitValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "1 show(s) configured")
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.LibraryDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestWatchRunsOnceThenStopsOnCancel(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out, _, err := runCLIContext(t, ctx, []string{"watch"}, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "Watching 3 folder(s)")
	if _, err := os.Stat(filepath.Join(env.showDir, "Season 01", "Show - S01E02 - Chapter 2.mkv")); err != nil {
		t.Fatalf("expected the initial run to rename the file: %v", err)
	}
}
