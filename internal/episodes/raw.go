package episodes

import (
	"strings"
	"time"
)

// AirDateLayout is the catalogue's first-aired date format.
const AirDateLayout = "2006-01-02"

// Order selects which numbering scheme a show uses.
type Order int

const (
	OrderAired Order = iota
	OrderDVD
)

func (o Order) String() string {
	if o == OrderDVD {
		return "dvd"
	}
	return "aired"
}

// RawEpisode is one catalogue record. It is never modified during a scan.
type RawEpisode struct {
	ID                int      `json:"id"`
	ShowID            string   `json:"show_id"`
	AiredSeason       int      `json:"aired_season"`
	AiredEpisode      int      `json:"aired_episode"`
	DVDSeason         *int     `json:"dvd_season,omitempty"`
	DVDEpisode        *int     `json:"dvd_episode,omitempty"`
	Title             string   `json:"title"`
	Overview          string   `json:"overview,omitempty"`
	FirstAired        string   `json:"first_aired,omitempty"`
	Directors         []string `json:"directors,omitempty"`
	Writers           []string `json:"writers,omitempty"`
	GuestStars        []string `json:"guest_stars,omitempty"`
	AirsBeforeSeason  *int     `json:"airs_before_season,omitempty"`
	AirsBeforeEpisode *int     `json:"airs_before_episode,omitempty"`
}

// AirDate parses FirstAired. The second return value is false when the
// catalogue has no usable date.
func (r RawEpisode) AirDate() (time.Time, bool) {
	value := strings.TrimSpace(r.FirstAired)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(AirDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EpisodeNumber returns the episode number under the given ordering.
func (r RawEpisode) EpisodeNumber(order Order) Number {
	if order == OrderDVD {
		if r.DVDEpisode == nil {
			return Unset
		}
		return Num(*r.DVDEpisode)
	}
	return Num(r.AiredEpisode)
}

// RawSeries groups a show's raw episodes by season under both orderings.
type RawSeries struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	PosterURL     string               `json:"poster_url,omitempty"`
	FanartURL     string               `json:"fanart_url,omitempty"`
	SeasonPosters map[int]string       `json:"season_posters,omitempty"`
	AiredSeasons  map[int][]RawEpisode `json:"aired_seasons"`
	DVDSeasons    map[int][]RawEpisode `json:"dvd_seasons,omitempty"`
}

// Seasons returns the season map for an ordering. Shows without DVD data fall
// back to aired order.
func (s *RawSeries) Seasons(order Order) map[int][]RawEpisode {
	if s == nil {
		return nil
	}
	if s.EffectiveOrder(order) == OrderDVD {
		return s.DVDSeasons
	}
	return s.AiredSeasons
}

// EffectiveOrder returns the ordering actually available for the series.
func (s *RawSeries) EffectiveOrder(order Order) Order {
	if order == OrderDVD && s != nil && len(s.DVDSeasons) > 0 {
		return OrderDVD
	}
	return OrderAired
}

// SeasonNumbers returns the season numbers present under an ordering, unsorted.
func (s *RawSeries) SeasonNumbers(order Order) []int {
	seasons := s.Seasons(order)
	out := make([]int, 0, len(seasons))
	for n := range seasons {
		out = append(out, n)
	}
	return out
}
