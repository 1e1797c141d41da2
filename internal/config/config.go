package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir   string `toml:"library_dir"`
	CatalogueDir string `toml:"catalogue_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Scan contains the knobs that shape a library scan.
type Scan struct {
	CountSpecials       bool     `toml:"count_specials"`
	DateDetection       bool     `toml:"date_detection"`
	CheckFutureEpisodes bool     `toml:"check_future_episodes"`
	LookForDuplicates   bool     `toml:"look_for_duplicates"`
	ProposeRenames      bool     `toml:"propose_renames"`
	RemoveEmptyFolders  bool     `toml:"remove_empty_folders"`
	FilenameTemplate    string   `toml:"filename_template"`
	VideoExtensions     []string `toml:"video_extensions"`
	DeleteMatching      []string `toml:"delete_matching"`
	FFprobeBinary       string   `toml:"ffprobe_binary"`
}

// Metadata controls the metadata and artwork collaborators.
type Metadata struct {
	WriteNFO       bool `toml:"write_nfo"`
	DownloadImages bool `toml:"download_images"`
	TouchFiles     bool `toml:"touch_files"`
}

// Feeds configures fetching of missing episodes from a feed endpoint.
type Feeds struct {
	Enabled     bool   `toml:"enabled"`
	URLTemplate string `toml:"url_template"`
	WatchDir    string `toml:"watch_dir"`
}

// Actions contains configuration for the action scheduler.
type Actions struct {
	ParallelDownloads     int     `toml:"parallel_downloads"`
	DownloadsPerSecond    float64 `toml:"downloads_per_second"`
	DownloadTimeout       int     `toml:"download_timeout"`
	ProbeIntervalMillis   int     `toml:"probe_interval_ms"`
	CancelGraceSeconds    int     `toml:"cancel_grace_seconds"`
	VerifyCrossVolumeCopy bool    `toml:"verify_cross_volume_copy"`
}

// Pattern describes one filename pattern used to recover season and episode
// numbers. Patterns are evaluated in declaration order.
type Pattern struct {
	Expression  string `toml:"expression"`
	Description string `toml:"description"`
	FullPath    bool   `toml:"full_path"`
	Disabled    bool   `toml:"disabled"`
}

// Rule is a per-season numbering adjustment for a show.
type Rule struct {
	Season int    `toml:"season"`
	Action string `toml:"action"`
	First  int    `toml:"first"`
	Second int    `toml:"second"`
	Text   string `toml:"text"`
}

// Show configures one show tracked in the library.
type Show struct {
	ID                  string   `toml:"id"`
	Name                string   `toml:"name"`
	Folders             []string `toml:"folders"`
	UseDVDOrder         bool     `toml:"use_dvd_order"`
	IgnoreSeasons       []int    `toml:"ignore_seasons"`
	ForceCheckFuture    bool     `toml:"force_check_future"`
	ForceCheckNoAirdate bool     `toml:"force_check_no_airdate"`
	SeasonFolderFormat  string   `toml:"season_folder_format"`
	Rules               []Rule   `toml:"rules"`
}

// Notifications configures ntfy delivery of run summaries. An empty topic
// disables notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Watch contains configuration for folder monitoring.
type Watch struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for showkeeper.
//
// Configuration sections by subsystem:
//   - Paths: library, catalogue, state, and log directories
//   - Scan: numbering and differ behaviour
//   - Metadata: NFO, artwork, and timestamp collaborators
//   - Feeds: fetching missing episodes from a feed endpoint
//   - Actions: scheduler parallelism and download limits
//   - Patterns: ordered filename patterns
//   - Shows: per-show folders and numbering rules
//   - Notifications: ntfy run summaries
//   - Watch: folder monitoring
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scan          Scan          `toml:"scan"`
	Metadata      Metadata      `toml:"metadata"`
	Feeds         Feeds         `toml:"feeds"`
	Actions       Actions       `toml:"actions"`
	Patterns      []Pattern     `toml:"patterns"`
	Shows         []Show        `toml:"shows"`
	Notifications Notifications `toml:"notifications"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/showkeeper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("showkeeper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The library and
// catalogue directories are never created; a missing library folder is a
// scan-time condition, not a configuration error.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Feeds.Enabled && strings.TrimSpace(c.Feeds.WatchDir) != "" {
		if err := os.MkdirAll(c.Feeds.WatchDir, 0o755); err != nil {
			return fmt.Errorf("create feed watch directory %q: %w", c.Feeds.WatchDir, err)
		}
	}
	return nil
}

// ShowFolders returns the folders scanned for a show. Shows without explicit
// folders live in a directory named after the show under the library root.
func (c *Config) ShowFolders(show Show) []string {
	if len(show.Folders) > 0 {
		return append([]string(nil), show.Folders...)
	}
	name := strings.TrimSpace(show.Name)
	if name == "" {
		name = show.ID
	}
	return []string{filepath.Join(c.Paths.LibraryDir, name)}
}

// FindShow returns the configured show with the given id.
func (c *Config) FindShow(id string) (Show, bool) {
	id = strings.TrimSpace(id)
	for _, show := range c.Shows {
		if strings.EqualFold(show.ID, id) {
			return show, true
		}
	}
	return Show{}, false
}

// DatabasePath returns the location of the state database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "showkeeper.db")
}

// LockPath returns the location of the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "showkeeper.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
