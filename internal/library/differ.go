package library

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"showkeeper/internal/actions"
	"showkeeper/internal/config"
	"showkeeper/internal/dircache"
	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
	"showkeeper/internal/matcher"
	"showkeeper/internal/media/ffprobe"
)

// FileLister is the directory cache surface the differ reads.
type FileLister interface {
	ListFiles(folder string) ([]dircache.File, bool)
	ListDirs(folder string) ([]string, bool)
}

// PlayLengthProber reports how long a video plays.
type PlayLengthProber interface {
	PlayLength(ctx context.Context, path string) (time.Duration, error)
}

// Show is the per-show view the differ works from.
type Show struct {
	ID                  string
	Name                string
	Folders             []string
	IgnoreSeasons       []int
	ForceCheckFuture    bool
	ForceCheckNoAirdate bool
	SeasonFolderFormat  string
	// Series supplies artwork URLs. Optional.
	Series *episodes.RawSeries
}

// ShowFromConfig builds a Show from its configuration entry.
func ShowFromConfig(cfg *config.Config, s config.Show, series *episodes.RawSeries) Show {
	name := s.Name
	if name == "" && series != nil {
		name = series.Name
	}
	if name == "" {
		name = s.ID
	}
	return Show{
		ID:                  s.ID,
		Name:                name,
		Folders:             cfg.ShowFolders(s),
		IgnoreSeasons:       append([]int(nil), s.IgnoreSeasons...),
		ForceCheckFuture:    s.ForceCheckFuture,
		ForceCheckNoAirdate: s.ForceCheckNoAirdate,
		SeasonFolderFormat:  s.SeasonFolderFormat,
		Series:              series,
	}
}

func (s Show) ignoresSeason(season int) bool {
	return slices.Contains(s.IgnoreSeasons, season)
}

// Options configures a Differ.
type Options struct {
	Matcher             *matcher.Matcher
	VideoExtensions     []string
	CheckFutureEpisodes bool
	LookForDuplicates   bool
	Prober              PlayLengthProber

	ProposeRenames     bool
	FilenameTemplate   string
	VerifyCopies       bool
	WriteNFO           bool
	DownloadImages     bool
	TouchFiles         bool
	DeleteMatching     []string
	RemoveEmptyFolders bool
	FeedURLTemplate    string
	FeedWatchDir       string
	Downloader         *actions.Downloader

	Now    func() time.Time
	Logger *slog.Logger
}

// OptionsFromConfig wires the production collaborators from configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	patterns, err := PatternsFromConfig(cfg.Patterns)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Matcher: &matcher.Matcher{
			Patterns:      patterns,
			DateDetection: cfg.Scan.DateDetection,
		},
		VideoExtensions:     cfg.Scan.VideoExtensions,
		CheckFutureEpisodes: cfg.Scan.CheckFutureEpisodes,
		LookForDuplicates:   cfg.Scan.LookForDuplicates,
		Prober:              ffprobe.NewProber(cfg.Scan.FFprobeBinary),
		ProposeRenames:      cfg.Scan.ProposeRenames,
		FilenameTemplate:    cfg.Scan.FilenameTemplate,
		VerifyCopies:        cfg.Actions.VerifyCrossVolumeCopy,
		WriteNFO:            cfg.Metadata.WriteNFO,
		DownloadImages:      cfg.Metadata.DownloadImages,
		TouchFiles:          cfg.Metadata.TouchFiles,
		DeleteMatching:      cfg.Scan.DeleteMatching,
		RemoveEmptyFolders:  cfg.Scan.RemoveEmptyFolders,
		Downloader: actions.NewDownloader(
			time.Duration(cfg.Actions.DownloadTimeout)*time.Second,
			cfg.Actions.DownloadsPerSecond,
		),
	}
	if cfg.Feeds.Enabled {
		opts.FeedURLTemplate = cfg.Feeds.URLTemplate
		opts.FeedWatchDir = cfg.Feeds.WatchDir
	}
	return opts, nil
}

// PatternsFromConfig compiles the configured patterns, falling back to the
// built-in set when none are configured.
func PatternsFromConfig(entries []config.Pattern) ([]matcher.Pattern, error) {
	if len(entries) == 0 {
		return matcher.DefaultPatterns(), nil
	}
	patterns := make([]matcher.Pattern, 0, len(entries))
	for i, entry := range entries {
		p, err := matcher.NewPattern(entry.Expression, entry.Description, entry.FullPath)
		if err != nil {
			return nil, fmt.Errorf("patterns[%d]: %w", i, err)
		}
		p.Enabled = !entry.Disabled
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Differ compares numbered episode lists against the library on disk.
type Differ struct {
	opts     Options
	logger   *slog.Logger
	videoExt map[string]struct{}
}

// New constructs a Differ.
func New(opts Options) *Differ {
	if opts.Matcher == nil {
		opts.Matcher = &matcher.Matcher{Patterns: matcher.DefaultPatterns()}
	}
	if opts.FilenameTemplate == "" {
		opts.FilenameTemplate = "{show} - S{season:02}E{episode:02} - {title}"
	}
	exts := make(map[string]struct{}, len(opts.VideoExtensions))
	for _, ext := range opts.VideoExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Differ{
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "differ"),
		videoExt: exts,
	}
}

func (d *Differ) now() time.Time {
	if d.opts.Now != nil {
		return d.opts.Now()
	}
	return time.Now()
}

// IsVideo reports whether f has a configured video extension. With no
// extensions configured every file counts.
func (d *Differ) IsVideo(f dircache.File) bool {
	if len(d.videoExt) == 0 {
		return true
	}
	_, ok := d.videoExt[f.Ext()]
	return ok
}

// Result gathers everything one reconciliation of a show produced.
type Result struct {
	Show       Show
	Index      *Index
	Missing    []*episodes.Episode
	Duplicates []Duplicate
	Actions    []actions.Action
}

// Reconcile indexes the show's folders once and derives the missing list,
// duplicate candidates, and proposed actions from it.
func (d *Differ) Reconcile(ctx context.Context, show Show, seasons map[int][]*episodes.Episode, files FileLister) (*Result, error) {
	logger := logging.WithContext(ctx, d.logger)
	index, err := d.Index(ctx, show, seasons, files)
	if err != nil {
		return nil, err
	}
	missing, err := d.missingFrom(ctx, show, seasons, index)
	if err != nil {
		return nil, err
	}
	result := &Result{Show: show, Index: index, Missing: missing}
	if d.opts.LookForDuplicates {
		if result.Duplicates, err = d.duplicatesFrom(ctx, show, seasons, index); err != nil {
			return nil, err
		}
	}
	if result.Actions, err = d.proposeFrom(ctx, show, seasons, files, index, missing); err != nil {
		return nil, err
	}
	logger.Info("show reconciled",
		logging.String(logging.FieldEventType, "show_reconciled"),
		logging.String(logging.FieldShow, show.ID),
		logging.Int("videos", len(index.Videos)),
		logging.Int("unmatched", len(index.Unmatched)),
		logging.Int("missing", len(result.Missing)),
		logging.Int("duplicates", len(result.Duplicates)),
		logging.Int("actions", len(result.Actions)),
	)
	return result, nil
}

// showRoot returns the configured folder containing path, or the first
// folder when none does.
func showRoot(show Show, path string) string {
	for _, folder := range show.Folders {
		rel, err := filepath.Rel(folder, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return folder
		}
	}
	if len(show.Folders) > 0 {
		return show.Folders[0]
	}
	return ""
}
