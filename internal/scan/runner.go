package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"showkeeper/internal/actions"
	"showkeeper/internal/catalogue"
	"showkeeper/internal/config"
	"showkeeper/internal/dircache"
	"showkeeper/internal/episodes"
	"showkeeper/internal/library"
	"showkeeper/internal/logging"
	"showkeeper/internal/notifications"
	"showkeeper/internal/scheduler"
	"showkeeper/internal/services"
	"showkeeper/internal/store"
)

// ErrLocked is returned when another showkeeper process holds the lock.
var ErrLocked = errors.New("another showkeeper instance is running")

// Dependencies lets callers and tests replace the production collaborators.
type Dependencies struct {
	Catalogue catalogue.Source
	Differ    *library.Differ
	Scheduler *scheduler.Scheduler
	Files     *dircache.Cache
	// Store is optional; without it no history or ignore list is used.
	Store *store.Store
	// Notifier receives run summaries. Nil disables notifications.
	Notifier notifications.Service
}

// reloader is implemented by catalogues that cache exports between scans.
type reloader interface {
	Reset()
	Preload(ids ...string)
}

// Runner coordinates scans and action runs.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	catalogue catalogue.Source
	differ    *library.Differ
	scheduler *scheduler.Scheduler
	files     *dircache.Cache
	store     *store.Store
	notifier  notifications.Service
	lock      *flock.Flock
}

// New constructs a Runner with production collaborators.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("scan runner requires config")
	}
	opts, err := library.OptionsFromConfig(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "build differ", "invalid patterns", err)
	}
	opts.Logger = logger
	schedOpts := scheduler.OptionsFromConfig(cfg)
	schedOpts.Logger = logger
	if st != nil {
		schedOpts.Ignore = st
	}
	return NewWithDependencies(cfg, Dependencies{
		Catalogue: catalogue.NewStore(cfg.Paths.CatalogueDir, logger),
		Differ:    library.New(opts),
		Scheduler: scheduler.New(schedOpts),
		Files:     dircache.New(logger),
		Store:     st,
		Notifier:  notifications.NewService(cfg),
	}, logger), nil
}

// NewWithDependencies constructs a Runner from explicit collaborators.
func NewWithDependencies(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Runner {
	if deps.Files == nil {
		deps.Files = dircache.New(logger)
	}
	if deps.Differ == nil {
		deps.Differ = library.New(library.Options{Logger: logger})
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(scheduler.Options{Logger: logger})
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Runner{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "scan"),
		catalogue: deps.Catalogue,
		differ:    deps.Differ,
		scheduler: deps.Scheduler,
		files:     deps.Files,
		store:     deps.Store,
		notifier:  deps.Notifier,
		lock:      flock.New(cfg.LockPath()),
	}
}

// Scheduler exposes the scheduler so callers can pause, resume, and read
// progress while a run is active.
func (r *Runner) Scheduler() *scheduler.Scheduler {
	return r.scheduler
}

// ShowReport is the outcome of reconciling one show.
type ShowReport struct {
	ShowID string
	Result *library.Result
	Err    error
}

// Report is the outcome of a scan.
type Report struct {
	ScanID    string
	StartedAt time.Time
	Shows     []ShowReport
	// Actions lists every proposed action not on the ignore list.
	Actions []actions.Action
	// Ignored counts proposals hidden by the ignore list.
	Ignored int
}

// Missing counts missing episodes across shows.
func (r *Report) Missing() int {
	n := 0
	for _, s := range r.Shows {
		if s.Result != nil {
			n += len(s.Result.Missing)
		}
	}
	return n
}

// Duplicates counts duplicate candidates across shows.
func (r *Report) Duplicates() int {
	n := 0
	for _, s := range r.Shows {
		if s.Result != nil {
			n += len(s.Result.Duplicates)
		}
	}
	return n
}

// Scan reconciles the selected shows, or every configured show when ids is
// empty. A show that fails is recorded in its ShowReport and does not stop
// the others.
func (r *Runner) Scan(ctx context.Context, ids ...string) (*Report, error) {
	var report *Report
	err := r.withLock(func() error {
		var scanErr error
		report, scanErr = r.scan(ctx, ids)
		return scanErr
	})
	return report, err
}

// Run executes the report's actions and returns the residual ones.
func (r *Runner) Run(ctx context.Context, report *Report) ([]actions.Action, error) {
	var residual []actions.Action
	err := r.withLock(func() error {
		residual = r.run(ctx, report)
		return nil
	})
	return residual, err
}

// ScanAndRun scans and immediately runs the proposals under one lock.
func (r *Runner) ScanAndRun(ctx context.Context, ids ...string) (*Report, []actions.Action, error) {
	var (
		report   *Report
		residual []actions.Action
	)
	err := r.withLock(func() error {
		var scanErr error
		report, scanErr = r.scan(ctx, ids)
		if scanErr != nil {
			return scanErr
		}
		residual = r.run(ctx, report)
		return nil
	})
	return report, residual, err
}

func (r *Runner) withLock(fn func() error) error {
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release lock",
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+r.cfg.LockPath()+" if no showkeeper process is running"),
			)
		}
	}()
	return fn()
}

func (r *Runner) selectShows(ids []string) ([]config.Show, error) {
	if len(ids) == 0 {
		return append([]config.Show(nil), r.cfg.Shows...), nil
	}
	out := make([]config.Show, 0, len(ids))
	for _, id := range ids {
		show, ok := r.cfg.FindShow(id)
		if !ok {
			return nil, services.Wrap(services.ErrNotFound, "scan", "select shows", "unknown show "+id, nil)
		}
		out = append(out, show)
	}
	return out, nil
}

func (r *Runner) scan(ctx context.Context, ids []string) (*Report, error) {
	if r.catalogue == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "start", "no catalogue configured", nil)
	}
	shows, err := r.selectShows(ids)
	if err != nil {
		return nil, err
	}

	report := &Report{ScanID: uuid.NewString(), StartedAt: time.Now()}
	ctx = services.WithScanID(ctx, report.ScanID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Int("shows", len(shows)),
	)

	if r.store != nil {
		if err := r.store.BeginScan(ctx, report.ScanID, report.StartedAt); err != nil {
			logging.WarnWithContext(logger, "failed to record scan start", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "scan history incomplete"),
			)
		}
	}

	showIDs := make([]string, 0, len(shows))
	var folders []string
	for _, show := range shows {
		showIDs = append(showIDs, show.ID)
		folders = append(folders, r.cfg.ShowFolders(show)...)
	}
	if c, ok := r.catalogue.(reloader); ok {
		c.Reset()
		c.Preload(showIDs...)
	}
	for _, folder := range folders {
		r.files.Invalidate(folder)
	}
	r.files.Prefill(folders...)

	var proposed []actions.Action
	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sr := r.scanShow(ctx, show)
		report.Shows = append(report.Shows, sr)
		if sr.Result != nil {
			proposed = append(proposed, sr.Result.Actions...)
		}
	}

	ignore := r.ignoreSet(ctx)
	for _, a := range proposed {
		if ignore.Contains(a.Key()) {
			report.Ignored++
			continue
		}
		report.Actions = append(report.Actions, a)
	}

	logger.Info("scan finished",
		logging.String(logging.FieldEventType, "scan_finished"),
		logging.Int("missing", report.Missing()),
		logging.Int("duplicates", report.Duplicates()),
		logging.Int("actions", len(report.Actions)),
		logging.Int("ignored", report.Ignored),
		logging.Duration("elapsed", time.Since(report.StartedAt)),
	)
	return report, nil
}

func (r *Runner) scanShow(ctx context.Context, cfgShow config.Show) ShowReport {
	ctx = services.WithShow(ctx, cfgShow.ID)
	logger := logging.WithContext(ctx, r.logger)

	seasons, series, err := r.number(cfgShow)
	if err != nil {
		logging.WarnWithContext(logger, "show skipped", "show_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the show's catalogue export and rules"),
			logging.String(logging.FieldImpact, "show not reconciled this scan"),
		)
		return ShowReport{ShowID: cfgShow.ID, Err: err}
	}

	show := library.ShowFromConfig(r.cfg, cfgShow, series)
	result, err := r.differ.Reconcile(ctx, show, seasons, r.files)
	if err != nil {
		return ShowReport{ShowID: cfgShow.ID, Err: err}
	}
	return ShowReport{ShowID: cfgShow.ID, Result: result}
}

// number builds the show's season lists. The catalogue lock is held only
// while the raw data is read and numbered.
func (r *Runner) number(show config.Show) (map[int][]*episodes.Episode, *episodes.RawSeries, error) {
	settings, err := showSettings(r.cfg, show)
	if err != nil {
		return nil, nil, err
	}

	r.catalogue.Lock()
	defer r.catalogue.Unlock()

	series, ok := r.catalogue.GetSeries(show.ID)
	if !ok {
		return nil, nil, services.Wrap(services.ErrNotFound, "scan", "lookup series", "no catalogue data for "+show.ID, nil)
	}
	seasons := make(map[int][]*episodes.Episode)
	for _, season := range series.SeasonNumbers(settings.Order) {
		list, err := episodes.Generate(settings, series, season, true)
		if errors.Is(err, episodes.ErrNoSuchSeason) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("number season %d: %w", season, err)
		}
		seasons[season] = list
	}
	episodes.AssignOverallNumbers(seasons)
	return seasons, series, nil
}

func showSettings(cfg *config.Config, show config.Show) (episodes.ShowSettings, error) {
	settings := episodes.ShowSettings{
		ID:            show.ID,
		Order:         episodes.OrderAired,
		CountSpecials: cfg.Scan.CountSpecials,
	}
	if show.UseDVDOrder {
		settings.Order = episodes.OrderDVD
	}
	for i, rule := range show.Rules {
		action, err := episodes.ParseAction(rule.Action)
		if err != nil {
			return settings, fmt.Errorf("shows %s rules[%d]: %w", show.ID, i, err)
		}
		settings.Rules = append(settings.Rules, episodes.Rule{
			Season: rule.Season,
			Action: action,
			First:  rule.First,
			Second: rule.Second,
			Text:   strings.TrimSpace(rule.Text),
		})
	}
	return settings, nil
}

func (r *Runner) ignoreSet(ctx context.Context) store.IgnoreSet {
	if r.store == nil {
		return nil
	}
	set, err := r.store.LoadIgnoreSet(ctx)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to load ignore list", "ignore_list_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ignored actions will be proposed"),
		)
		return nil
	}
	return set
}

func (r *Runner) run(ctx context.Context, report *Report) []actions.Action {
	if report == nil {
		return nil
	}
	ctx = services.WithScanID(ctx, report.ScanID)
	logger := logging.WithContext(ctx, r.logger)

	started := time.Now()
	residual := r.scheduler.Schedule(ctx, report.Actions)

	for _, s := range report.Shows {
		if s.Result == nil {
			continue
		}
		for _, folder := range s.Result.Show.Folders {
			r.files.Invalidate(folder)
		}
	}

	if r.store != nil {
		if err := r.store.RecordFailures(context.WithoutCancel(ctx), report.ScanID, residual); err != nil {
			logging.WarnWithContext(logger, "failed to record failed actions", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "failed actions not kept in history"),
			)
		}
		rec := store.ScanRecord{
			ID:         report.ScanID,
			Shows:      len(report.Shows),
			Missing:    report.Missing(),
			Duplicates: report.Duplicates(),
			Proposed:   len(report.Actions),
			Residual:   len(residual),
			Cancelled:  ctx.Err() != nil,
		}
		if err := r.store.FinishScan(context.WithoutCancel(ctx), rec); err != nil {
			logging.WarnWithContext(logger, "failed to record scan totals", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "scan history incomplete"),
			)
		}
	}

	if len(report.Actions) > 0 {
		summary := notifications.RunSummary{
			Shows:      len(report.Shows),
			Missing:    report.Missing(),
			Duplicates: report.Duplicates(),
			Completed:  len(report.Actions) - len(residual),
			Failed:     len(residual),
			Duration:   time.Since(started),
			Cancelled:  ctx.Err() != nil,
		}
		if err := r.notifier.NotifyRunCompleted(context.WithoutCancel(ctx), summary); err != nil {
			logging.WarnWithContext(logger, "run notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}
	return residual
}
