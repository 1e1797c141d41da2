package library

import (
	"context"
	"time"

	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
)

// ComputeMissing returns the episodes no file in the show's folders covers.
// Episodes in ignored seasons are skipped. An episode that has not aired yet
// is only reported when future checking is on, either globally or for the
// show. An episode without an air date is only reported when the show forces
// it or when no season up to its own carries any air dates at all.
func (d *Differ) ComputeMissing(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister) ([]*episodes.Episode, error) {
	index, err := d.Index(ctx, show, seasons, files)
	if err != nil {
		return nil, err
	}
	return d.missingFrom(ctx, show, seasons, index)
}

func (d *Differ) missingFrom(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, index *Index) ([]*episodes.Episode, error) {
	logger := logging.WithContext(ctx, d.logger)
	now := d.now()
	order := sortedSeasons(seasons)

	datesUpTo := make(map[int]bool, len(order))
	seen := false
	for _, season := range order {
		for _, ep := range seasons[season] {
			if ep.HasAirDate() {
				seen = true
				break
			}
		}
		datesUpTo[season] = seen
	}

	var missing []*episodes.Episode
	for _, season := range order {
		if show.ignoresSeason(season) {
			continue
		}
		for _, ep := range seasons[season] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if ep.Ignore || ep.Primary.IsUnset() || index.Found(ep) {
				continue
			}
			if !d.shouldReport(show, ep, now, datesUpTo[season]) {
				continue
			}
			missing = append(missing, ep)
		}
	}
	if len(missing) > 0 {
		logger.Info("missing episodes found",
			logging.String(logging.FieldShow, show.ID),
			logging.Int("count", len(missing)),
			logging.String("first", missing[0].Label()),
		)
	}
	return missing, nil
}

func (d *Differ) shouldReport(show Show, ep *episodes.Episode, now time.Time, anyDates bool) bool {
	if !ep.HasAirDate() {
		return show.ForceCheckNoAirdate || !anyDates
	}
	if !ep.AirDate.After(now) {
		return true
	}
	return d.opts.CheckFutureEpisodes || show.ForceCheckFuture
}
