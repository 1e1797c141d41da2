package library

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"showkeeper/internal/actions"
	"showkeeper/internal/dircache"
	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
	"showkeeper/internal/textutil"
)

// ProposeRenames returns a rename for every identified video whose path
// differs from the configured layout. Sidecar files sharing the video's stem
// move with it.
func (d *Differ) ProposeRenames(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister) ([]actions.Action, error) {
	index, err := d.Index(ctx, show, seasons, files)
	if err != nil {
		return nil, err
	}
	p := d.newProposer(show, index, files)
	if err := p.renames(ctx, seasons); err != nil {
		return nil, err
	}
	return p.out, nil
}

func (d *Differ) proposeFrom(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister, index *Index, missing []*episodes.Episode) ([]actions.Action, error) {
	p := d.newProposer(show, index, files)
	if d.opts.ProposeRenames {
		if err := p.renames(ctx, seasons); err != nil {
			return nil, err
		}
	}
	if d.opts.WriteNFO {
		p.metadata(seasons)
	}
	if d.opts.TouchFiles {
		p.touches(seasons)
	}
	if d.opts.DownloadImages {
		p.artwork(seasons)
	}
	if len(d.opts.DeleteMatching) > 0 {
		p.junk()
	}
	if d.opts.RemoveEmptyFolders {
		p.emptyFolders()
	}
	if d.opts.FeedURLTemplate != "" {
		p.feeds(missing)
	}
	return p.out, nil
}

type proposer struct {
	d     *Differ
	show  Show
	index *Index
	files FileLister

	// targets maps a video's current path to where it will live after this
	// batch.
	targets map[string]string
	// leaving holds paths that this batch moves away or deletes.
	leaving map[string]struct{}
	claimed map[string]struct{}
	out     []actions.Action
}

func (d *Differ) newProposer(show Show, index *Index, files FileLister) *proposer {
	return &proposer{
		d:       d,
		show:    show,
		index:   index,
		files:   files,
		targets: make(map[string]string),
		leaving: make(map[string]struct{}),
		claimed: make(map[string]struct{}),
	}
}

func (p *proposer) add(a actions.Action) {
	p.out = append(p.out, a)
}

// exists reports whether path is a file already on disk under the show.
func (p *proposer) exists(path string) bool {
	for _, list := range [][]dircache.File{p.index.Videos, p.index.Others} {
		for _, f := range list {
			if f.Path == path {
				return true
			}
		}
	}
	return false
}

func (p *proposer) renames(ctx context.Context, seasons map[int][]*episodes.Episode) error {
	logger := logging.WithContext(ctx, p.d.logger)
	for _, season := range sortedSeasons(seasons) {
		if p.show.ignoresSeason(season) {
			continue
		}
		for _, ep := range seasons[season] {
			if err := ctx.Err(); err != nil {
				return err
			}
			primary, ok := ep.Primary.Value()
			if !ok {
				continue
			}
			for _, l := range p.index.FilesFor(ep) {
				// Files spanning a different range than the slot keep their name.
				if l.First() != primary || l.Last() != primary+ep.Width() {
					continue
				}
				if _, done := p.targets[l.File.Path]; done {
					continue
				}
				root := showRoot(p.show, l.File.Path)
				dir := filepath.Join(root, RenderSeasonFolder(p.show.SeasonFolderFormat, ep.Season))
				stem := RenderEpisodeName(p.d.opts.FilenameTemplate, p.show.Name, ep)
				target := filepath.Join(dir, stem+l.File.Ext())
				if target == l.File.Path {
					p.targets[l.File.Path] = target
					continue
				}
				if _, taken := p.claimed[target]; taken || p.exists(target) {
					logger.Debug("rename target occupied",
						logging.String("from", l.File.Path),
						logging.String("to", target),
					)
					continue
				}
				p.claimed[target] = struct{}{}
				p.targets[l.File.Path] = target
				p.move(l.File, target, ep)
				for _, side := range p.sidecars(l.File) {
					rest := strings.TrimPrefix(side.Name, l.File.Stem())
					p.move(side, filepath.Join(dir, stem+rest), ep)
				}
			}
		}
	}
	return nil
}

func (p *proposer) move(f dircache.File, target string, ep *episodes.Episode) {
	op := actions.OpRename
	if filepath.Dir(target) != f.Dir {
		op = actions.OpMove
	}
	a := actions.NewFileOp(op, f.Path, target)
	a.Episode = ep.Label()
	a.Verify = p.d.opts.VerifyCopies
	p.leaving[f.Path] = struct{}{}
	p.add(a)
}

// sidecars returns the non-video files next to video whose names extend its
// stem, such as "Show.S01E02.en.srt" for "Show.S01E02.mkv".
func (p *proposer) sidecars(video dircache.File) []dircache.File {
	prefix := video.Stem() + "."
	var out []dircache.File
	for _, f := range p.index.Others {
		if f.Dir == video.Dir && strings.HasPrefix(f.Name, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// destination returns where f will live once this batch has run.
func (p *proposer) destination(f dircache.File) string {
	if target, ok := p.targets[f.Path]; ok {
		return target
	}
	return f.Path
}

func (p *proposer) metadata(seasons map[int][]*episodes.Episode) {
	for _, season := range sortedSeasons(seasons) {
		if p.show.ignoresSeason(season) {
			continue
		}
		for _, ep := range seasons[season] {
			located := p.index.FilesFor(ep)
			if len(located) == 0 {
				continue
			}
			video := located[0].File
			if p.exists(filepath.Join(video.Dir, video.Stem()+".nfo")) {
				continue
			}
			dest := p.destination(video)
			nfo := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".nfo"
			if _, taken := p.claimed[nfo]; taken {
				continue
			}
			p.claimed[nfo] = struct{}{}
			p.add(actions.NewWriteNFO(nfo, p.show.Name, ep))
		}
	}
}

// touches aligns file modification times with air dates. Files this batch
// renames are left for the next scan so the two never race.
func (p *proposer) touches(seasons map[int][]*episodes.Episode) {
	for _, season := range sortedSeasons(seasons) {
		if p.show.ignoresSeason(season) {
			continue
		}
		for _, ep := range seasons[season] {
			if !ep.HasAirDate() {
				continue
			}
			for _, l := range p.index.FilesFor(ep) {
				if _, moving := p.leaving[l.File.Path]; moving {
					continue
				}
				day := ep.AirDate.Format(episodes.AirDateLayout)
				if l.File.ModTime.UTC().Format(episodes.AirDateLayout) == day {
					continue
				}
				p.add(actions.NewTouch(l.File.Path, ep.AirDate))
			}
		}
	}
}

func (p *proposer) artwork(seasons map[int][]*episodes.Episode) {
	series := p.show.Series
	if series == nil || len(p.show.Folders) == 0 || p.d.opts.Downloader == nil {
		return
	}
	root := p.show.Folders[0]
	want := func(url, name string) {
		if url == "" {
			return
		}
		dest := filepath.Join(root, name)
		if p.exists(dest) {
			return
		}
		p.add(actions.NewDownload(p.d.opts.Downloader, url, dest))
	}
	want(series.PosterURL, "poster.jpg")
	want(series.FanartURL, "fanart.jpg")
	for _, season := range sortedSeasons(seasons) {
		if p.show.ignoresSeason(season) {
			continue
		}
		name := fmt.Sprintf("season%02d-poster.jpg", season)
		if season == 0 {
			name = "season-specials-poster.jpg"
		}
		want(series.SeasonPosters[season], name)
	}
}

func (p *proposer) junk() {
	for _, list := range [][]dircache.File{p.index.Videos, p.index.Others} {
		for _, f := range list {
			if _, moving := p.leaving[f.Path]; moving {
				continue
			}
			if pattern, ok := matchesAny(p.d.opts.DeleteMatching, f.Name); ok {
				p.leaving[f.Path] = struct{}{}
				p.add(actions.NewDeleteFile(f.Path, "matches "+pattern))
			}
		}
	}
}

func matchesAny(patterns []string, name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, pattern := range patterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), lower); err == nil && ok {
			return pattern, true
		}
	}
	return "", false
}

// emptyFolders removes folders left with no files once this batch's moves
// and deletions have run. Deeper folders come first so parents empty out
// before their own removal.
func (p *proposer) emptyFolders() {
	occupied := make(map[string]struct{})
	for _, list := range [][]dircache.File{p.index.Videos, p.index.Others} {
		for _, f := range list {
			if _, gone := p.leaving[f.Path]; gone {
				continue
			}
			markOccupied(occupied, f.Dir)
		}
	}
	for target := range p.claimed {
		markOccupied(occupied, filepath.Dir(target))
	}

	var empty []string
	for _, folder := range p.show.Folders {
		dirs, ok := p.files.ListDirs(folder)
		if !ok {
			continue
		}
		for _, dir := range dirs {
			if _, used := occupied[dir]; !used {
				empty = append(empty, dir)
			}
		}
	}
	sort.SliceStable(empty, func(i, j int) bool {
		di, dj := strings.Count(empty[i], string(filepath.Separator)), strings.Count(empty[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return empty[i] < empty[j]
	})
	for _, dir := range empty {
		p.add(actions.NewDeleteDirectory(dir))
	}
}

func markOccupied(occupied map[string]struct{}, dir string) {
	for {
		if _, ok := occupied[dir]; ok {
			return
		}
		occupied[dir] = struct{}{}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (p *proposer) feeds(missing []*episodes.Episode) {
	if p.d.opts.Downloader == nil {
		return
	}
	for _, ep := range missing {
		u := expandFeedURL(p.d.opts.FeedURLTemplate, p.show.Name, ep)
		name := textutil.SanitizeFileName(p.show.Name+" "+ep.Label()) + ".torrent"
		p.add(actions.NewFetch(p.d.opts.Downloader, u, filepath.Join(p.d.opts.FeedWatchDir, name), ep.Label()))
	}
}

func expandFeedURL(template, showName string, ep *episodes.Episode) string {
	return strings.NewReplacer(
		"{show}", url.QueryEscape(showName),
		"{season}", strconv.Itoa(ep.Season),
		"{episode}", strconv.Itoa(ep.Primary.Or(0)),
		"{label}", url.QueryEscape(ep.Label()),
	).Replace(template)
}
