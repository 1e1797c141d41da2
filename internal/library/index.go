package library

import (
	"context"
	"sort"

	"showkeeper/internal/dircache"
	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
	"showkeeper/internal/matcher"
)

// Located is a video file together with the identity the matcher recovered.
type Located struct {
	File  dircache.File
	Match matcher.Match
}

// First and Last bound the episode numbers the file covers.
func (l Located) First() int { return l.Match.Episode }

func (l Located) Last() int {
	if l.Match.Final > l.Match.Episode {
		return l.Match.Final
	}
	return l.Match.Episode
}

type slot struct {
	season  int
	episode int
}

// Index maps the videos under a show's folders to episode slots.
type Index struct {
	// Videos lists every video file under the show's folders.
	Videos []dircache.File
	// Others lists the non-video files, such as sidecars and artwork.
	Others []dircache.File
	// Unmatched lists videos no strategy could identify.
	Unmatched []dircache.File

	located []Located
	bySlot  map[slot][]int
}

// Index lists and identifies every file under the show's folders. Folders
// that cannot be read are logged and skipped.
func (d *Differ) Index(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister) (*Index, error) {
	logger := logging.WithContext(ctx, d.logger)
	dated := datedEpisodes(seasons)
	ix := &Index{bySlot: make(map[slot][]int)}

	for _, folder := range show.Folders {
		listing, ok := files.ListFiles(folder)
		if !ok {
			logging.WarnWithContext(logger, "show folder not readable", "folder_unreadable",
				logging.String(logging.FieldShow, show.ID),
				logging.String("folder", folder),
				logging.String(logging.FieldErrorHint, "check the folder exists and is readable"),
				logging.String(logging.FieldImpact, "episodes in this folder will be reported missing"),
			)
			continue
		}
		for _, f := range listing {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !d.IsVideo(f) {
				ix.Others = append(ix.Others, f)
				continue
			}
			ix.Videos = append(ix.Videos, f)
			match, ok := d.opts.Matcher.Find(f.Path, f.Name, show.Name, dated)
			if !ok || match.Episode < 0 {
				ix.Unmatched = append(ix.Unmatched, f)
				continue
			}
			// Episode-only names carry no season; treat them as season 1.
			if match.Season < 0 {
				match.Season = 1
			}
			ix.add(Located{File: f, Match: match})
		}
	}
	logger.Debug("show folders indexed",
		logging.String(logging.FieldShow, show.ID),
		logging.Int("videos", len(ix.Videos)),
		logging.Int("identified", len(ix.located)),
	)
	return ix, nil
}

func (ix *Index) add(l Located) {
	pos := len(ix.located)
	ix.located = append(ix.located, l)
	for n := l.First(); n <= l.Last(); n++ {
		key := slot{season: l.Match.Season, episode: n}
		ix.bySlot[key] = append(ix.bySlot[key], pos)
	}
}

// Located returns every identified video in listing order.
func (ix *Index) Located() []Located {
	return append([]Located(nil), ix.located...)
}

// FilesFor returns the identified videos covering any number in ep's span.
func (ix *Index) FilesFor(ep *episodes.Episode) []Located {
	primary, ok := ep.Primary.Value()
	if !ok {
		return nil
	}
	seen := make(map[int]struct{})
	var out []Located
	for n := primary; n <= primary+ep.Width(); n++ {
		for _, pos := range ix.bySlot[slot{season: ep.Season, episode: n}] {
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, ix.located[pos])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].File.Path < out[j].File.Path })
	return out
}

// Found reports whether any video covers ep.
func (ix *Index) Found(ep *episodes.Episode) bool {
	primary, ok := ep.Primary.Value()
	if !ok {
		return false
	}
	for n := primary; n <= primary+ep.Width(); n++ {
		if len(ix.bySlot[slot{season: ep.Season, episode: n}]) > 0 {
			return true
		}
	}
	return false
}

func datedEpisodes(seasons map[int][]*episodes.Episode) []matcher.DatedEpisode {
	var out []matcher.DatedEpisode
	for _, season := range sortedSeasons(seasons) {
		for _, ep := range seasons[season] {
			primary, ok := ep.Primary.Value()
			if !ok || !ep.HasAirDate() {
				continue
			}
			out = append(out, matcher.DatedEpisode{Season: ep.Season, Episode: primary, AirDate: ep.AirDate})
		}
	}
	return out
}

func sortedSeasons(seasons map[int][]*episodes.Episode) []int {
	keys := make([]int, 0, len(seasons))
	for k := range seasons {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
