package testsupport

import (
	"path/filepath"
	"testing"

	"showkeeper/internal/config"
)

// ConfigOption adjusts a generated test configuration before its directories
// are created.
type ConfigOption func(*config.Config)

// NewConfig returns the default configuration with every path moved under a
// fresh temp directory. The state and log directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		LibraryDir:   filepath.Join(base, "library"),
		CatalogueDir: filepath.Join(base, "catalogue"),
		StateDir:     filepath.Join(base, "state"),
		LogDir:       filepath.Join(base, "logs"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithShow tracks show, filling in the default season folder format.
func WithShow(show config.Show) ConfigOption {
	return func(cfg *config.Config) {
		if show.SeasonFolderFormat == "" {
			show.SeasonFolderFormat = "Season {season:02}"
		}
		cfg.Shows = append(cfg.Shows, show)
	}
}

// BaseDir is the temp directory NewConfig placed every path under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
