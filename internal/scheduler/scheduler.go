package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"showkeeper/internal/actions"
	"showkeeper/internal/config"
	"showkeeper/internal/fileutil"
	"showkeeper/internal/logging"
	"showkeeper/internal/services"
)

const (
	defaultProbeInterval = 20 * time.Millisecond
	defaultCancelGrace   = 5 * time.Second
)

// IgnoreList reports whether the user asked to hide an action.
type IgnoreList interface {
	Contains(key string) bool
}

// Options configures a Scheduler.
type Options struct {
	ParallelDownloads int
	ProbeInterval     time.Duration
	CancelGrace       time.Duration
	SameVolume        VolumeFunc
	Ignore            IgnoreList
	Logger            *slog.Logger
}

// OptionsFromConfig derives scheduler options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ParallelDownloads: cfg.Actions.ParallelDownloads,
		ProbeInterval:     time.Duration(cfg.Actions.ProbeIntervalMillis) * time.Millisecond,
		CancelGrace:       time.Duration(cfg.Actions.CancelGraceSeconds) * time.Second,
		SameVolume:        fileutil.SameVolume,
	}
}

// Scheduler runs action batches. A Scheduler runs one batch at a time.
type Scheduler struct {
	opts   Options
	logger *slog.Logger

	paused atomic.Bool

	mu      sync.Mutex
	running bool
	queues  []*Queue
}

// New constructs a Scheduler.
func New(opts Options) *Scheduler {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = defaultProbeInterval
	}
	if opts.CancelGrace < 0 {
		opts.CancelGrace = defaultCancelGrace
	}
	if opts.ParallelDownloads <= 0 {
		opts.ParallelDownloads = 1
	}
	return &Scheduler{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "scheduler"),
	}
}

// Pause stops new dispatch. Running actions continue.
func (s *Scheduler) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("dispatch paused", logging.String(logging.FieldEventType, "scheduler_paused"))
	}
}

// Resume re-enables dispatch.
func (s *Scheduler) Resume() {
	if s.paused.Swap(false) {
		s.logger.Info("dispatch resumed", logging.String(logging.FieldEventType, "scheduler_resumed"))
	}
}

// Paused reports whether dispatch is paused.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Schedule executes list and blocks until every action has finished or ctx
// is cancelled. It returns the actions that did not succeed, in their
// original order, excluding ignored ones.
func (s *Scheduler) Schedule(ctx context.Context, list []actions.Action) []actions.Action {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Error("schedule called while a batch is running",
			logging.String(logging.FieldEventType, "scheduler_busy"),
			logging.String(logging.FieldErrorHint, "wait for the running batch to finish"),
		)
		return s.residual(list)
	}
	for _, a := range list {
		if a != nil {
			a.Status().Reset()
		}
	}
	queues := Classify(list, s.opts.ParallelDownloads, s.opts.SameVolume)
	s.running = true
	s.queues = queues
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()
	logger.Info("action batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("actions", len(list)),
		logging.Int(QueueMove, len(queues[0].Actions)),
		logging.Int(QueueQuick, len(queues[1].Actions)),
		logging.Int(QueueWrite, len(queues[2].Actions)),
		logging.Int(QueueDownload, len(queues[3].Actions)),
	)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	s.dispatch(ctx, workerCtx, queues, &wg, logger)

	if ctx.Err() != nil {
		cancelWorkers()
		if !waitTimeout(&wg, s.opts.CancelGrace) {
			logging.WarnWithContext(logger, "abandoning running actions after cancel", "scheduler_abandon",
				logging.Duration("grace", s.opts.CancelGrace),
				logging.String(logging.FieldErrorHint, "check the affected files for partial results"),
				logging.String(logging.FieldImpact, "running actions may be partially complete"),
			)
		}
	} else {
		wg.Wait()
	}

	residual := s.residual(list)
	snap := s.Progress()
	logger.Info("action batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("done", snap.Done),
		logging.Int("failed", snap.Failed),
		logging.Int("residual", len(residual)),
		logging.Bool("cancelled", ctx.Err() != nil),
		logging.Duration("elapsed", time.Since(started)),
	)
	return residual
}

// dispatch runs the dispatcher loop until every queue is exhausted or ctx is
// cancelled. A panic inside the loop is logged and ends dispatch; running
// workers are cancelled by the caller.
func (s *Scheduler) dispatch(ctx, workerCtx context.Context, queues []*Queue, wg *sync.WaitGroup, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "dispatcher failed", "scheduler_fatal",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report this failure with the log attached"),
			)
		}
	}()

	progress := logging.NewBatchProgress(10)
	for {
		if ctx.Err() != nil {
			return
		}
		if s.Paused() {
			if !sleep(ctx, s.opts.ProbeInterval) {
				return
			}
			continue
		}

		pending := false
		for _, q := range queues {
			if !q.Pending() {
				continue
			}
			pending = true
			if ctx.Err() != nil || s.Paused() {
				break
			}
			if !s.probe(ctx, q) {
				continue
			}
			a := q.Actions[q.next]
			q.next++
			started := make(chan struct{})
			wg.Add(1)
			go s.work(workerCtx, q, a, started, wg, logger)
			<-started
		}
		if !pending {
			return
		}

		if snap := s.Progress(); progress.Observe(snap.Done, snap.Total) {
			logger.Info("action batch progress",
				logging.String(logging.FieldEventType, "batch_progress"),
				logging.Float64("percent", snap.Percent),
				logging.Int("done", snap.Done),
				logging.Int("total", snap.Total),
			)
		}
	}
}

// probe waits up to one probe interval for a free slot in q.
func (s *Scheduler) probe(ctx context.Context, q *Queue) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeInterval)
	defer cancel()
	return q.sem.Acquire(probeCtx, 1) == nil
}

// work runs one action. The dispatcher has already acquired q's slot on the
// worker's behalf; the worker releases it when done.
func (s *Scheduler) work(ctx context.Context, q *Queue, a actions.Action, started chan<- struct{}, wg *sync.WaitGroup, logger *slog.Logger) {
	defer wg.Done()
	defer q.sem.Release(1)
	q.enter()
	defer q.leave()
	close(started)

	defer func() {
		if r := recover(); r != nil {
			a.Status().Fail(fmt.Errorf("action panicked: %v", r))
			logging.ErrorWithContext(logger, "action panicked", "action_panic",
				logging.String(logging.FieldQueue, q.Name),
				logging.String(logging.FieldAction, a.Name()),
				logging.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	ctx = services.WithQueue(ctx, q.Name)
	if err := actions.Run(ctx, a); err != nil {
		logger.Warn("action failed",
			logging.String(logging.FieldEventType, "action_failed"),
			logging.String(logging.FieldQueue, q.Name),
			logging.String(logging.FieldAction, a.Name()),
			logging.String("produces", a.Produces()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "review the failed action list after the batch"),
			logging.String(logging.FieldImpact, "library left unchanged for this action"),
		)
		return
	}
	logger.Debug("action completed",
		logging.String(logging.FieldQueue, q.Name),
		logging.String(logging.FieldAction, a.Name()),
	)
}

func (s *Scheduler) residual(list []actions.Action) []actions.Action {
	out := make([]actions.Action, 0)
	for _, a := range list {
		if a == nil || a.Status().Succeeded() {
			continue
		}
		if s.opts.Ignore != nil && s.opts.Ignore.Contains(a.Key()) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
