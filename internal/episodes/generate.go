package episodes

import (
	"fmt"
	"sort"

	"showkeeper/internal/services"
)

// ErrNoSuchSeason is returned when the catalogue has no data for a season.
var ErrNoSuchSeason = fmt.Errorf("%w: no such season", services.ErrNotFound)

// ShowSettings carries the per-show knobs the numbering engine reads.
type ShowSettings struct {
	ID            string
	Order         Order
	CountSpecials bool
	Rules         []Rule
}

// RulesFor returns the show's rules for one season in declaration order.
func (s ShowSettings) RulesFor(season int) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.Season == season {
			out = append(out, r)
		}
	}
	return out
}

// Generate produces the numbered episode list for one season.
func Generate(show ShowSettings, series *RawSeries, season int, applyRules bool) ([]*Episode, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: show %s", ErrNoSuchSeason, show.ID)
	}
	order := series.EffectiveOrder(show.Order)
	raw, ok := series.Seasons(order)[season]
	if !ok {
		return nil, fmt.Errorf("%w: show %s season %d", ErrNoSuchSeason, show.ID, season)
	}

	list := make([]*Episode, 0, len(raw))
	for _, r := range raw {
		if r.ShowID == "" {
			r.ShowID = series.ID
		}
		list = append(list, newEpisode(r, season, r.EpisodeNumber(order)))
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, okA := list[i].Primary.Value()
		b, okB := list[j].Primary.Value()
		if okA != okB {
			return okA
		}
		return a < b
	})
	Renumber(list)

	if show.CountSpecials && season != 0 {
		list = mergeSpecials(list, specialsOf(series, order), season)
	}

	if applyRules {
		for _, rule := range show.RulesFor(season) {
			var err error
			list, err = applyRule(list, rule)
			if err != nil {
				return nil, fmt.Errorf("show %s: %w", show.ID, err)
			}
			Renumber(list)
		}
	}

	kept := list[:0]
	for _, ep := range list {
		if !ep.Ignore {
			kept = append(kept, ep)
		}
	}
	return kept, nil
}

func specialsOf(series *RawSeries, order Order) []RawEpisode {
	if specials, ok := series.Seasons(order)[0]; ok {
		return specials
	}
	return series.AiredSeasons[0]
}

// mergeSpecials places each special that airs before an episode of this
// season immediately ahead of it. Specials whose target episode is absent go
// to the end of the season. Targets are located by their pre-merge numbers;
// a single renumbering pass afterwards shifts everything behind an insertion.
func mergeSpecials(list []*Episode, specials []RawEpisode, season int) []*Episode {
	inserted := false
	for _, sp := range specials {
		if sp.AirsBeforeSeason == nil || *sp.AirsBeforeSeason != season {
			continue
		}
		ep := newEpisode(sp, season, Placeholder)
		at := -1
		if sp.AirsBeforeEpisode != nil {
			at = indexOf(list, *sp.AirsBeforeEpisode)
		}
		if at < 0 {
			list = append(list, ep)
		} else {
			list = append(list, nil)
			copy(list[at+1:], list[at:])
			list[at] = ep
		}
		inserted = true
	}
	if inserted {
		Renumber(list)
	}
	return list
}

// Renumber assigns contiguous primary numbers in list order. Numbering starts
// at 0 when the first entry is episode 0 and at 1 otherwise. Each entry keeps
// its span width. Unset entries are skipped and do not advance the counter.
func Renumber(list []*Episode) {
	if len(list) == 0 {
		return
	}
	n := 1
	if v, ok := list[0].Primary.Value(); ok && v == 0 {
		n = 0
	}
	for _, ep := range list {
		if ep.Primary.IsUnset() {
			continue
		}
		width := ep.Width()
		ep.Primary = Num(n)
		ep.Secondary = Num(n + width)
		n += width + 1
	}
}
