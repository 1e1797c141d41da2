package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ruleActions = map[string]struct{}{
	"rename":         {},
	"remove":         {},
	"ignore_episode": {},
	"split":          {},
	"merge":          {},
	"collapse":       {},
	"swap":           {},
	"insert":         {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateActions(); err != nil {
		return err
	}
	if err := c.validatePatterns(); err != nil {
		return err
	}
	if err := c.validateShows(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set (or export SHOWKEEPER_LIBRARY_DIR)")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateScan() error {
	if !strings.Contains(c.Scan.FilenameTemplate, "{episode") {
		return errors.New("scan.filename_template must contain an {episode} token")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if !c.Feeds.Enabled {
		return nil
	}
	if c.Feeds.URLTemplate == "" {
		return errors.New("feeds.url_template must be set when feeds.enabled is true")
	}
	if strings.TrimSpace(c.Feeds.WatchDir) == "" {
		return errors.New("feeds.watch_dir must be set when feeds.enabled is true")
	}
	return nil
}

func (c *Config) validateActions() error {
	return ensurePositiveMap(map[string]int{
		"actions.parallel_downloads": c.Actions.ParallelDownloads,
		"actions.download_timeout":   c.Actions.DownloadTimeout,
		"actions.probe_interval_ms":  c.Actions.ProbeIntervalMillis,
	})
}

func (c *Config) validatePatterns() error {
	for i, p := range c.Patterns {
		re, err := regexp.Compile(p.Expression)
		if err != nil {
			return fmt.Errorf("patterns[%d]: invalid expression %q: %w", i, p.Expression, err)
		}
		names := re.SubexpNames()
		hasSeason, hasEpisode := false, false
		for _, name := range names {
			switch name {
			case "s":
				hasSeason = true
			case "e":
				hasEpisode = true
			}
		}
		if !hasSeason && !hasEpisode {
			return fmt.Errorf("patterns[%d]: expression %q must capture a season (?P<s>) or episode (?P<e>) group", i, p.Expression)
		}
	}
	return nil
}

func (c *Config) validateShows() error {
	seen := make(map[string]struct{}, len(c.Shows))
	for i, show := range c.Shows {
		if show.ID == "" {
			return fmt.Errorf("shows[%d].id must be set", i)
		}
		key := strings.ToLower(show.ID)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("shows[%d].id %q is duplicated", i, show.ID)
		}
		seen[key] = struct{}{}
		for j, rule := range show.Rules {
			if _, ok := ruleActions[rule.Action]; !ok {
				return fmt.Errorf("shows[%d].rules[%d].action %q is not one of rename, remove, ignore_episode, split, merge, collapse, swap, insert", i, j, rule.Action)
			}
			if rule.Season < 0 {
				return fmt.Errorf("shows[%d].rules[%d].season must be >= 0", i, j)
			}
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
