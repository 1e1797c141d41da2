package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	if err := c.normalizeFeeds(); err != nil {
		return err
	}
	c.normalizeActions()
	c.normalizePatterns()
	if err := c.normalizeShows(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = defaultWatchDebounce
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir == "" {
		if value, ok := os.LookupEnv("SHOWKEEPER_LIBRARY_DIR"); ok {
			c.Paths.LibraryDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogueDir) == "" {
		c.Paths.CatalogueDir = defaultCatalogueDir
	}
	if c.Paths.CatalogueDir, err = expandPath(c.Paths.CatalogueDir); err != nil {
		return fmt.Errorf("paths.catalogue_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	c.Scan.FilenameTemplate = strings.TrimSpace(c.Scan.FilenameTemplate)
	if c.Scan.FilenameTemplate == "" {
		c.Scan.FilenameTemplate = defaultFilenameTemplate
	}
	c.Scan.FFprobeBinary = strings.TrimSpace(c.Scan.FFprobeBinary)
	if c.Scan.FFprobeBinary == "" {
		c.Scan.FFprobeBinary = defaultFFprobeBinary
	}
	exts := make([]string, 0, len(c.Scan.VideoExtensions))
	seen := make(map[string]struct{}, len(c.Scan.VideoExtensions))
	for _, ext := range c.Scan.VideoExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultVideoExtensions...)
	}
	c.Scan.VideoExtensions = exts

	patterns := c.Scan.DeleteMatching[:0]
	for _, pattern := range c.Scan.DeleteMatching {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Scan.DeleteMatching = patterns
}

func (c *Config) normalizeFeeds() error {
	c.Feeds.URLTemplate = strings.TrimSpace(c.Feeds.URLTemplate)
	if strings.TrimSpace(c.Feeds.WatchDir) == "" {
		return nil
	}
	var err error
	if c.Feeds.WatchDir, err = expandPath(c.Feeds.WatchDir); err != nil {
		return fmt.Errorf("feeds.watch_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeActions() {
	if c.Actions.ParallelDownloads <= 0 {
		c.Actions.ParallelDownloads = defaultParallelDownloads
	}
	if c.Actions.DownloadsPerSecond <= 0 {
		c.Actions.DownloadsPerSecond = defaultDownloadsPerSecond
	}
	if c.Actions.DownloadTimeout <= 0 {
		c.Actions.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Actions.ProbeIntervalMillis <= 0 {
		c.Actions.ProbeIntervalMillis = defaultProbeIntervalMillis
	}
	if c.Actions.CancelGraceSeconds < 0 {
		c.Actions.CancelGraceSeconds = 0
	}
}

func (c *Config) normalizePatterns() {
	patterns := c.Patterns[:0]
	for _, p := range c.Patterns {
		p.Expression = strings.TrimSpace(p.Expression)
		p.Description = strings.TrimSpace(p.Description)
		if p.Expression == "" {
			continue
		}
		patterns = append(patterns, p)
	}
	c.Patterns = patterns
}

func (c *Config) normalizeShows() error {
	for i := range c.Shows {
		show := &c.Shows[i]
		show.ID = strings.TrimSpace(show.ID)
		show.Name = strings.TrimSpace(show.Name)
		show.SeasonFolderFormat = strings.TrimSpace(show.SeasonFolderFormat)
		if show.SeasonFolderFormat == "" {
			show.SeasonFolderFormat = defaultSeasonFolderFormat
		}
		folders := make([]string, 0, len(show.Folders))
		for _, folder := range show.Folders {
			if strings.TrimSpace(folder) == "" {
				continue
			}
			expanded, err := expandPath(strings.TrimSpace(folder))
			if err != nil {
				return fmt.Errorf("shows[%d].folders: %w", i, err)
			}
			folders = append(folders, expanded)
		}
		show.Folders = folders
		for j := range show.Rules {
			show.Rules[j].Action = strings.ToLower(strings.TrimSpace(show.Rules[j].Action))
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
