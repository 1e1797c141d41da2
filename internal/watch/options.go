package watch

import (
	"path/filepath"
	"strings"
	"time"

	"showkeeper/internal/config"
)

const defaultDebounce = 30 * time.Second

var defaultIgnorePatterns = []string{
	"*.part",
	"*.tmp",
	"Thumbs.db",
	"showkeeper.db*",
	"showkeeper.lock",
}

// Options configures a Watcher.
type Options struct {
	// Roots are watched recursively. Missing roots are skipped with a warning.
	Roots []string
	// Debounce is how long the tree must stay quiet before the trigger fires.
	Debounce time.Duration
	// IgnorePatterns are matched against base names with filepath.Match.
	// Nil selects the defaults.
	IgnorePatterns []string
}

// OptionsFromConfig watches every configured show folder and the catalogue
// directory.
func OptionsFromConfig(cfg *config.Config) Options {
	var roots []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if path == "" {
			return
		}
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		roots = append(roots, path)
	}
	for _, show := range cfg.Shows {
		for _, folder := range cfg.ShowFolders(show) {
			add(folder)
		}
	}
	add(cfg.Paths.CatalogueDir)
	return Options{
		Roots:    roots,
		Debounce: time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
	}
}

func (o *Options) setDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = defaultIgnorePatterns
	}
}

// shouldIgnore reports whether changes to path are noise: hidden entries,
// partial downloads, and showkeeper's own state files.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
