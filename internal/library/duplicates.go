package library

import (
	"context"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"showkeeper/internal/dircache"
	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
)

// oversizeFactor is how far a file's play length must exceed the mean of its
// neighbours before it counts as holding two episodes.
const oversizeFactor = 1.4

// Duplicate is a pair of same-season episodes that share an air date and may
// be one broadcast listed twice.
type Duplicate struct {
	A, B   *episodes.Episode
	Season int
	// NamesSimilar is true when the titles share a meaningful root.
	NamesSimilar bool
	// OneFound is true when exactly one of the pair has a file.
	OneFound bool
	// LargeFileSize is true when that file plays 40% longer than the other
	// videos in its folder.
	LargeFileSize bool
	// Similarity is the Jaro-Winkler score of the two titles.
	Similarity float64
}

// Likely reports whether every heuristic agrees.
func (d Duplicate) Likely() bool {
	return d.NamesSimilar && d.OneFound && d.LargeFileSize
}

// FindPossibleDuplicates pairs episodes within a season that share an air
// date. Seasons where every episode shares one date, such as announced but
// unaired seasons, are skipped.
func (d *Differ) FindPossibleDuplicates(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister) ([]Duplicate, error) {
	index, err := d.Index(ctx, show, seasons, files)
	if err != nil {
		return nil, err
	}
	return d.duplicatesFrom(ctx, show, seasons, index)
}

func (d *Differ) duplicatesFrom(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, index *Index) ([]Duplicate, error) {
	logger := logging.WithContext(ctx, d.logger)
	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false

	var out []Duplicate
	for _, season := range sortedSeasons(seasons) {
		if show.ignoresSeason(season) {
			continue
		}
		list := seasons[season]
		if singleAirDate(list) {
			continue
		}
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				a, b := list[i], list[j]
				if !a.HasAirDate() || !b.HasAirDate() || !a.AirDate.Equal(b.AirDate) {
					continue
				}
				dup := Duplicate{
					A:            a,
					B:            b,
					Season:       season,
					NamesSimilar: episodes.SimilarNames(a.Name, b.Name),
					Similarity:   strutil.Similarity(a.Name, b.Name, jw),
				}
				if dup.NamesSimilar {
					foundA, foundB := index.Found(a), index.Found(b)
					dup.OneFound = foundA != foundB
					if dup.OneFound {
						found := a
						if foundB {
							found = b
						}
						dup.LargeFileSize = d.oversized(ctx, index, found)
					}
				}
				logger.Debug("possible duplicate",
					logging.String(logging.FieldShow, show.ID),
					logging.String("a", a.Label()),
					logging.String("b", b.Label()),
					logging.Bool("names_similar", dup.NamesSimilar),
					logging.Bool("one_found", dup.OneFound),
					logging.Bool("large_file", dup.LargeFileSize),
					logging.Float64("similarity", dup.Similarity),
				)
				out = append(out, dup)
			}
		}
	}
	return out, nil
}

// singleAirDate reports whether every episode shares one air date, counting
// a missing date as a date of its own.
func singleAirDate(list []*episodes.Episode) bool {
	if len(list) < 2 {
		return true
	}
	first := list[0].AirDate
	for _, ep := range list[1:] {
		if !ep.AirDate.Equal(first) {
			return false
		}
	}
	return true
}

// oversized reports whether the file covering ep plays more than 40% longer
// than the mean of the other videos in the same folder.
func (d *Differ) oversized(ctx context.Context, index *Index, ep *episodes.Episode) bool {
	if d.opts.Prober == nil {
		return false
	}
	located := index.FilesFor(ep)
	if len(located) == 0 {
		return false
	}
	target := located[0].File
	length, err := d.opts.Prober.PlayLength(ctx, target.Path)
	if err != nil || length <= 0 {
		d.logProbeFailure(ctx, target, err)
		return false
	}

	var total time.Duration
	count := 0
	for _, other := range index.Videos {
		if other.Dir != target.Dir || other.Path == target.Path {
			continue
		}
		l, err := d.opts.Prober.PlayLength(ctx, other.Path)
		if err != nil || l <= 0 {
			d.logProbeFailure(ctx, other, err)
			continue
		}
		total += l
		count++
	}
	if count == 0 {
		return false
	}
	mean := float64(total) / float64(count)
	return float64(length) > mean*oversizeFactor
}

func (d *Differ) logProbeFailure(ctx context.Context, f dircache.File, err error) {
	logging.WithContext(ctx, d.logger).Debug("play length unavailable",
		logging.String("path", f.Path),
		logging.Error(err),
	)
}
