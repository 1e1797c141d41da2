package matcher

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Match is the identity recovered from a name. Final is -1 unless the name
// covers several episodes.
type Match struct {
	Season  int
	Episode int
	Final   int
	// Pattern is the description of the winning pattern, or "air date".
	Pattern string
	ByDate  bool
	AirDate time.Time
}

// DatedEpisode is an episode with a known air date offered to date matching.
type DatedEpisode struct {
	Season  int
	Episode int
	AirDate time.Time
}

// Matcher bundles the pattern cascade with the date-detection setting.
type Matcher struct {
	Patterns      []Pattern
	DateDetection bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Find tries air-date matching first, when enabled, then the pattern cascade.
func (m *Matcher) Find(fullPath, filename, showHint string, dated []DatedEpisode) (Match, bool) {
	if m.DateDetection {
		now := time.Now
		if m.Now != nil {
			now = m.Now
		}
		if match, ok := FindByAirDate(filename, dated, now()); ok {
			return match, true
		}
	}
	return FindSeasonEpisode(fullPath, filename, showHint, m.Patterns)
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01-02-2006",
	"06-01-02",
	"02-01-06",
	"01-02-06",
}

var dateSeparators = strings.NewReplacer(".", "-", ",", "-", "/", "-", " ", "-")

// FindByAirDate reports the episode whose air date appears in filename. When
// several do, the one aired closest to now wins.
func FindByAirDate(filename string, dated []DatedEpisode, now time.Time) (Match, bool) {
	normalized := dateSeparators.Replace(filename)
	var (
		best     DatedEpisode
		bestDist time.Duration
		found    bool
	)
	for _, ep := range dated {
		if ep.AirDate.IsZero() {
			continue
		}
		for _, layout := range dateLayouts {
			if !strings.Contains(normalized, ep.AirDate.Format(layout)) {
				continue
			}
			dist := now.Sub(ep.AirDate)
			if dist < 0 {
				dist = -dist
			}
			if !found || dist < bestDist {
				best, bestDist, found = ep, dist, true
			}
			break
		}
	}
	if !found {
		return Match{}, false
	}
	return Match{
		Season:  best.Season,
		Episode: best.Episode,
		Final:   -1,
		Pattern: "air date",
		ByDate:  true,
		AirDate: best.AirDate,
	}, true
}

// FindSeasonEpisode runs the pattern cascade against filename (or fullPath
// for full-path patterns) after stripping the show-name hint.
func FindSeasonEpisode(fullPath, filename, showHint string, patterns []Pattern) (Match, bool) {
	lower := cases.Lower(language.Und)
	name := StripShowHint(lower.String(filename), lower.String(showHint))

	path := name
	if fullPath != "" {
		path = filepath.Join(lower.String(filepath.Dir(fullPath)), name)
	}

	for _, p := range patterns {
		if !p.Enabled {
			continue
		}
		target := name
		if p.FullPath {
			target = path
		}
		season, episode, final, ok := p.match(target)
		if !ok {
			continue
		}
		desc := p.Description
		if desc == "" {
			desc = p.Expression
		}
		return Match{Season: season, Episode: episode, Final: final, Pattern: desc}, true
	}
	return Match{Season: -1, Episode: -1, Final: -1}, false
}

var longNumber = regexp.MustCompile(`[0-9]{3,}`)

// StripShowHint removes the show name from a lower-cased filename. A purely
// numeric hint, or one the filename starts with, is removed verbatim once.
// Otherwise only runs of three or more digits taken from the hint are
// removed.
func StripShowHint(filename, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return filename
	}
	if isNumeric(hint) || strings.HasPrefix(filename, hint) {
		return strings.Replace(filename, hint, "", 1)
	}
	for _, digits := range longNumber.FindAllString(hint, -1) {
		filename = strings.ReplaceAll(filename, digits, "")
	}
	return filename
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
