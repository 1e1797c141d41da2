package matcher

import (
	"testing"
	"time"
)

func TestFindSeasonEpisodeDefaults(t *testing.T) {
	tests := []struct {
		name                   string
		fullPath               string
		filename               string
		hint                   string
		season, episode, final int
	}{
		{"dotted sxxeyy", "", "Show.Name.S03E07.Title.mkv", "Show Name", 3, 7, -1},
		{"hint casing ignored", "", "Show.Name.S03E07.Title.mkv", "SHOW NAME", 3, 7, -1},
		{"multi episode", "", "show.s01e02e03.mkv", "show", 1, 2, 3},
		{"multi episode dash", "", "Show - S01E02-E03 - Title.mkv", "Show", 1, 2, 3},
		{"nxnn", "", "Show 2x05 Title.avi", "Show", 2, 5, -1},
		{"nxnn range", "", "Show 2x05-2x06.avi", "Show", 2, 5, 6},
		{"season episode words", "", "Show Season 4 Episode 11.mkv", "Show", 4, 11, -1},
		{"season folder", "/tv/Show/Season 2/Episode 05.mkv", "Episode 05.mkv", "Show", 2, 5, -1},
		{"three digit", "", "Show.304.HDTV.mkv", "Show", 3, 4, -1},
		{"episode only", "", "Show - Ep 12.mkv", "Show", -1, 12, -1},
		{"numeric show name", "", "24.S02E13.mkv", "24", 2, 13, -1},
		{"embedded digits in hint", "", "The.Room.222.Story.105.mkv", "Room 222", 1, 5, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := FindSeasonEpisode(tt.fullPath, tt.filename, tt.hint, DefaultPatterns())
			if !ok {
				t.Fatalf("expected match for %q", tt.filename)
			}
			if m.Season != tt.season || m.Episode != tt.episode || m.Final != tt.final {
				t.Fatalf("got %d/%d/%d, want %d/%d/%d (pattern %q)", m.Season, m.Episode, m.Final, tt.season, tt.episode, tt.final, m.Pattern)
			}
		})
	}
}

func TestFindSeasonEpisodeNoMatch(t *testing.T) {
	m, ok := FindSeasonEpisode("", "holiday-video-1080p.mkv", "Show", DefaultPatterns())
	if ok {
		t.Fatalf("expected no match, got %+v", m)
	}
	if m.Season != -1 || m.Episode != -1 {
		t.Fatalf("expected -1 sentinels, got %+v", m)
	}
}

func TestDisabledPatternsAreSkipped(t *testing.T) {
	patterns := DefaultPatterns()
	for i := range patterns {
		patterns[i].Enabled = false
	}
	if _, ok := FindSeasonEpisode("", "Show.S01E01.mkv", "Show", patterns); ok {
		t.Fatal("expected disabled patterns to be ignored")
	}
}

func TestNewPatternValidation(t *testing.T) {
	if _, err := NewPattern(`part(?P<e>\d+)`, "parts", false); err != nil {
		t.Fatalf("expected episode-only pattern to compile: %v", err)
	}
	if _, err := NewPattern(`s\d+e\d+`, "", false); err == nil {
		t.Fatal("expected pattern without groups to be rejected")
	}
	if _, err := NewPattern(`s(?P<s>\d+`, "", false); err == nil {
		t.Fatal("expected invalid expression to be rejected")
	}
}

func TestCustomPatternMissingGroupYieldsMinusOne(t *testing.T) {
	p, err := NewPattern(`part[ ._-]*(?P<e>[0-9]+)(?P<s>x)?`, "parts", false)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := FindSeasonEpisode("", "Miniseries Part 3.mkv", "Miniseries", []Pattern{p})
	if !ok {
		t.Fatal("expected match")
	}
	if m.Season != -1 || m.Episode != 3 {
		t.Fatalf("unexpected match %+v", m)
	}
}

func TestStripShowHint(t *testing.T) {
	tests := []struct {
		filename, hint, want string
	}{
		{"24.s02e13.mkv", "24", ".s02e13.mkv"},
		{"show name s01e01.mkv", "show name", " s01e01.mkv"},
		{"the.room.222.s01e02.mkv", "room 222", "the.room..s01e02.mkv"},
		{"s01e01.mkv", "", "s01e01.mkv"},
	}
	for _, tt := range tests {
		if got := StripShowHint(tt.filename, tt.hint); got != tt.want {
			t.Errorf("StripShowHint(%q, %q) = %q, want %q", tt.filename, tt.hint, got, tt.want)
		}
	}
}

func TestAirDateBeatsPattern(t *testing.T) {
	aired := time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC)
	m := &Matcher{
		Patterns:      DefaultPatterns(),
		DateDetection: true,
		Now:           func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	dated := []DatedEpisode{
		{Season: 5, Episode: 9, AirDate: aired},
		{Season: 5, Episode: 10, AirDate: aired.AddDate(0, 0, 7)},
	}

	match, ok := m.Find("", "Daily.Show.S01E01.2012.03.14.mkv", "Daily Show", dated)
	if !ok {
		t.Fatal("expected match")
	}
	if !match.ByDate || match.Season != 5 || match.Episode != 9 {
		t.Fatalf("expected air-date match 5/9, got %+v", match)
	}

	m.DateDetection = false
	match, ok = m.Find("", "Daily.Show.S01E01.2012.03.14.mkv", "Daily Show", dated)
	if !ok || match.ByDate || match.Season != 1 || match.Episode != 1 {
		t.Fatalf("expected pattern match with date detection off, got %+v", match)
	}
}

func TestAirDateFormatsAndClosestWins(t *testing.T) {
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	older := DatedEpisode{Season: 1, Episode: 1, AirDate: time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)}
	newer := DatedEpisode{Season: 2, Episode: 4, AirDate: time.Date(2011, 2, 3, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		filename string
		want     DatedEpisode
	}{
		{"news 03/02/2011.mkv", newer},
		{"news,02,03,2001.mkv", older},
		{"news 11.02.03.mkv", newer},
		{"news 2001-02-03 and 2011-02-03.mkv", newer},
	}
	for _, tt := range tests {
		match, ok := FindByAirDate(tt.filename, []DatedEpisode{older, newer}, now)
		if !ok {
			t.Fatalf("expected date match for %q", tt.filename)
		}
		if match.Season != tt.want.Season || match.Episode != tt.want.Episode {
			t.Fatalf("%q: got %d/%d want %d/%d", tt.filename, match.Season, match.Episode, tt.want.Season, tt.want.Episode)
		}
	}
	if _, ok := FindByAirDate("no date here.mkv", []DatedEpisode{older}, now); ok {
		t.Fatal("expected no date match")
	}
}
