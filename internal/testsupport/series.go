package testsupport

import (
	"fmt"
	"testing"
	"time"

	"showkeeper/internal/episodes"
)

// NewSeries builds a catalogue record with count episodes per season. Titles
// read "Chapter N" and episodes air a week apart starting at firstAired.
func NewSeries(id, name string, counts map[int]int, firstAired time.Time) *episodes.RawSeries {
	series := &episodes.RawSeries{
		ID:           id,
		Name:         name,
		AiredSeasons: make(map[int][]episodes.RawEpisode, len(counts)),
	}
	air := firstAired
	for season := 0; season <= maxKey(counts); season++ {
		count, ok := counts[season]
		if !ok {
			continue
		}
		list := make([]episodes.RawEpisode, 0, count)
		for n := 1; n <= count; n++ {
			raw := episodes.RawEpisode{
				ID:           season*1000 + n,
				ShowID:       id,
				AiredSeason:  season,
				AiredEpisode: n,
				Title:        fmt.Sprintf("Chapter %d", n),
			}
			if !firstAired.IsZero() {
				raw.FirstAired = air.Format(episodes.AirDateLayout)
				air = air.AddDate(0, 0, 7)
			}
			list = append(list, raw)
		}
		series.AiredSeasons[season] = list
	}
	return series
}

// Numbered runs the numbering engine over every season of series.
func Numbered(tb testing.TB, series *episodes.RawSeries, settings episodes.ShowSettings) map[int][]*episodes.Episode {
	tb.Helper()

	out := make(map[int][]*episodes.Episode)
	for _, season := range series.SeasonNumbers(settings.Order) {
		list, err := episodes.Generate(settings, series, season, true)
		if err != nil {
			tb.Fatalf("Generate season %d: %v", season, err)
		}
		out[season] = list
	}
	return out
}

func maxKey(m map[int]int) int {
	highest := -1
	for k := range m {
		if k > highest {
			highest = k
		}
	}
	return highest
}
