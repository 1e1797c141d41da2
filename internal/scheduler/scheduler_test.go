package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"showkeeper/internal/actions"
	"showkeeper/internal/scheduler"
)

type fakeAction struct {
	kind    actions.Kind
	name    string
	from    string
	delay   time.Duration
	fail    bool
	panics  bool
	block   bool
	status  actions.Status
	started atomic.Int32
	ok      atomic.Int32
	running *atomic.Int32
	peak    *atomic.Int32
}

func newFake(kind actions.Kind, name string) *fakeAction {
	return &fakeAction{kind: kind, name: name}
}

func (f *fakeAction) Kind() actions.Kind      { return f.kind }
func (f *fakeAction) Name() string            { return f.name }
func (f *fakeAction) Produces() string        { return "/dest/" + f.name }
func (f *fakeAction) SizeOfWork() int64       { return 1 }
func (f *fakeAction) Key() string             { return actions.KeyOf(f.kind, f.Produces()) }
func (f *fakeAction) Status() *actions.Status { return &f.status }
func (f *fakeAction) Source() string          { return f.from }

func (f *fakeAction) Execute(ctx context.Context) error {
	f.started.Add(1)
	if f.running != nil {
		n := f.running.Add(1)
		defer f.running.Add(-1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if f.panics {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.fail {
		return errors.New("failed")
	}
	f.ok.Add(1)
	return nil
}

func toActions(fakes []*fakeAction) []actions.Action {
	out := make([]actions.Action, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

func sameVolume(same bool) scheduler.VolumeFunc {
	return func(string, string) (bool, error) { return same, nil }
}

func TestClassify(t *testing.T) {
	move := newFake(actions.KindMove, "move")
	rename := newFake(actions.KindRename, "rename")
	touch := newFake(actions.KindTouch, "touch")
	del := newFake(actions.KindDeleteFile, "del")
	rmdir := newFake(actions.KindDeleteDirectory, "rmdir")
	nfo := newFake(actions.KindWriteMetadata, "nfo")
	dl := newFake(actions.KindDownload, "dl")
	fetch := newFake(actions.KindFetch, "fetch")
	list := toActions([]*fakeAction{move, rename, touch, del, rmdir, nfo, dl, fetch})

	cross := scheduler.Classify(list, 3, sameVolume(false))
	want := map[string]int{
		scheduler.QueueMove:     3,
		scheduler.QueueQuick:    2,
		scheduler.QueueWrite:    1,
		scheduler.QueueDownload: 2,
	}
	for _, q := range cross {
		if len(q.Actions) != want[q.Name] {
			t.Fatalf("queue %s: got %d actions, want %d", q.Name, len(q.Actions), want[q.Name])
		}
	}
	if cross[3].Limit != 3 || cross[2].Limit != 4 || cross[0].Limit != 1 || cross[1].Limit != 1 {
		t.Fatalf("unexpected limits: %d %d %d %d", cross[0].Limit, cross[1].Limit, cross[2].Limit, cross[3].Limit)
	}

	same := scheduler.Classify(list, 3, sameVolume(true))
	if len(same[0].Actions) != 1 || same[0].Actions[0] != actions.Action(touch) {
		t.Fatalf("expected only touch in move queue, got %d", len(same[0].Actions))
	}
	if len(same[1].Actions) != 4 || same[1].Actions[0] != actions.Action(move) {
		t.Fatalf("expected same-volume moves in quick queue in order")
	}

	failing := scheduler.Classify(list, 3, func(string, string) (bool, error) { return true, errors.New("stat") })
	if len(failing[0].Actions) != 3 {
		t.Fatalf("volume errors should fall back to move queue, got %d", len(failing[0].Actions))
	}
}

func TestScheduleHonorsLimits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"serial downloads", 1},
		{"three downloads", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var running, peak atomic.Int32
			fakes := make([]*fakeAction, 10)
			for i := range fakes {
				fakes[i] = newFake(actions.KindDownload, fmt.Sprintf("dl-%d", i))
				fakes[i].delay = 20 * time.Millisecond
				fakes[i].running = &running
				fakes[i].peak = &peak
			}
			s := scheduler.New(scheduler.Options{ParallelDownloads: tt.limit, ProbeInterval: 5 * time.Millisecond})
			residual := s.Schedule(context.Background(), toActions(fakes))
			if len(residual) != 0 {
				t.Fatalf("expected empty residual, got %d", len(residual))
			}
			if got := int(peak.Load()); got > tt.limit {
				t.Fatalf("peak in-flight %d exceeds limit %d", got, tt.limit)
			}
			snap := s.Progress()
			if snap.Done != 10 || snap.Failed != 0 || snap.Percent != 100 {
				t.Fatalf("unexpected snapshot: %+v", snap)
			}
			if q := snap.Queues[3]; q.Peak > tt.limit || q.InFlight != 0 {
				t.Fatalf("unexpected download queue progress: %+v", q)
			}
		})
	}
}

func TestScheduleLimitsQueuesIndependently(t *testing.T) {
	var quickRunning, quickPeak, dlRunning, dlPeak, allRunning, allPeak atomic.Int32
	var fakes []*fakeAction
	for i := range 5 {
		del := newFake(actions.KindDeleteFile, fmt.Sprintf("del-%d", i))
		del.running, del.peak = &quickRunning, &quickPeak
		dl := newFake(actions.KindDownload, fmt.Sprintf("dl-%d", i))
		dl.running, dl.peak = &dlRunning, &dlPeak
		fakes = append(fakes, del, dl)
	}
	list := make([]actions.Action, len(fakes))
	for i, f := range fakes {
		f.delay = 30 * time.Millisecond
		list[i] = &sharedCounter{fakeAction: f, running: &allRunning, peak: &allPeak}
	}

	s := scheduler.New(scheduler.Options{ParallelDownloads: 3, ProbeInterval: 5 * time.Millisecond})
	if residual := s.Schedule(context.Background(), list); len(residual) != 0 {
		t.Fatalf("expected empty residual, got %d", len(residual))
	}
	if got := quickPeak.Load(); got != 1 {
		t.Fatalf("quick queue peak %d, want 1", got)
	}
	if got := dlPeak.Load(); got < 2 || got > 3 {
		t.Fatalf("download queue peak %d, want 2..3", got)
	}
	if got := allPeak.Load(); got < 2 || got > 4 {
		t.Fatalf("combined peak %d, want both queues running together within their limits", got)
	}

	snap := s.Progress()
	if snap.Done != 10 || snap.Failed != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	for _, q := range snap.Queues {
		switch q.Name {
		case scheduler.QueueQuick:
			if q.Total != 5 || q.Peak != 1 {
				t.Fatalf("unexpected quick queue progress: %+v", q)
			}
		case scheduler.QueueDownload:
			if q.Total != 5 || q.Peak > 3 || q.Peak < 2 {
				t.Fatalf("unexpected download queue progress: %+v", q)
			}
		}
	}
}

// sharedCounter tracks concurrency across every queue of a batch.
type sharedCounter struct {
	*fakeAction
	running *atomic.Int32
	peak    *atomic.Int32
}

func (c *sharedCounter) Execute(ctx context.Context) error {
	n := c.running.Add(1)
	defer c.running.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return c.fakeAction.Execute(ctx)
}

func TestScheduleSerialQueuesRunOneAtATime(t *testing.T) {
	var running, peak atomic.Int32
	fakes := make([]*fakeAction, 5)
	for i := range fakes {
		fakes[i] = newFake(actions.KindMove, fmt.Sprintf("mv-%d", i))
		fakes[i].delay = 10 * time.Millisecond
		fakes[i].running = &running
		fakes[i].peak = &peak
	}
	s := scheduler.New(scheduler.Options{SameVolume: sameVolume(false), ProbeInterval: 5 * time.Millisecond})
	if residual := s.Schedule(context.Background(), toActions(fakes)); len(residual) != 0 {
		t.Fatalf("expected empty residual, got %d", len(residual))
	}
	if peak.Load() != 1 {
		t.Fatalf("move queue should be serial, peak %d", peak.Load())
	}
}

func TestScheduleReturnsFailuresInOrder(t *testing.T) {
	a := newFake(actions.KindWriteMetadata, "a")
	b := newFake(actions.KindWriteMetadata, "b")
	b.fail = true
	c := newFake(actions.KindDeleteFile, "c")
	d := newFake(actions.KindDownload, "d")
	d.fail = true

	s := scheduler.New(scheduler.Options{ProbeInterval: 5 * time.Millisecond})
	residual := s.Schedule(context.Background(), toActions([]*fakeAction{d, a, b, c}))
	if len(residual) != 2 || residual[0] != actions.Action(d) || residual[1] != actions.Action(b) {
		t.Fatalf("unexpected residual %v", residual)
	}
	if b.Status().Message() != "failed" {
		t.Fatalf("expected failure message, got %q", b.Status().Message())
	}
}

type ignoreSet map[string]bool

func (s ignoreSet) Contains(key string) bool { return s[key] }

func TestScheduleExcludesIgnored(t *testing.T) {
	a := newFake(actions.KindDownload, "a")
	a.fail = true
	b := newFake(actions.KindDownload, "b")
	b.fail = true
	s := scheduler.New(scheduler.Options{Ignore: ignoreSet{a.Key(): true}, ProbeInterval: 5 * time.Millisecond})
	residual := s.Schedule(context.Background(), toActions([]*fakeAction{a, b}))
	if len(residual) != 1 || residual[0] != actions.Action(b) {
		t.Fatalf("expected only b in residual, got %v", residual)
	}
}

func TestSchedulePauseAndResume(t *testing.T) {
	fakes := make([]*fakeAction, 4)
	for i := range fakes {
		fakes[i] = newFake(actions.KindWriteMetadata, fmt.Sprintf("w-%d", i))
	}
	s := scheduler.New(scheduler.Options{ProbeInterval: 5 * time.Millisecond})
	s.Pause()
	if !s.Paused() {
		t.Fatal("expected paused")
	}

	done := make(chan []actions.Action, 1)
	go func() { done <- s.Schedule(context.Background(), toActions(fakes)) }()

	time.Sleep(60 * time.Millisecond)
	for _, f := range fakes {
		if f.started.Load() != 0 {
			t.Fatalf("action %s started while paused", f.name)
		}
	}
	s.Resume()

	select {
	case residual := <-done:
		if len(residual) != 0 {
			t.Fatalf("expected empty residual, got %d", len(residual))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("schedule did not finish after resume")
	}
}

func TestScheduleCancelThenReschedule(t *testing.T) {
	fakes := make([]*fakeAction, 6)
	for i := range fakes {
		fakes[i] = newFake(actions.KindDownload, fmt.Sprintf("dl-%d", i))
	}
	fakes[0].block = true
	fakes[1].block = true

	s := scheduler.New(scheduler.Options{ParallelDownloads: 2, ProbeInterval: 5 * time.Millisecond, CancelGrace: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []actions.Action, 1)
	go func() { done <- s.Schedule(ctx, toActions(fakes)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	var residual []actions.Action
	select {
	case residual = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule did not return after cancel")
	}
	if len(residual) != len(fakes) {
		t.Fatalf("expected every action in residual, got %d", len(residual))
	}
	for i, a := range residual {
		if a != actions.Action(fakes[i]) {
			t.Fatalf("residual order changed at %d", i)
		}
	}
	if fakes[5].started.Load() != 0 {
		t.Fatal("undispatched action should not have started")
	}

	fakes[0].block = false
	fakes[1].block = false
	if again := s.Schedule(context.Background(), residual); len(again) != 0 {
		t.Fatalf("expected empty residual after reschedule, got %d", len(again))
	}
	for _, f := range fakes {
		if f.ok.Load() != 1 {
			t.Fatalf("action %s succeeded %d times", f.name, f.ok.Load())
		}
	}
	if snap := s.Progress(); snap.Done != len(fakes) || snap.Total != len(fakes) {
		t.Fatalf("unexpected snapshot after reschedule: %+v", snap)
	}
}

func TestScheduleRecoversFromPanics(t *testing.T) {
	bad := newFake(actions.KindWriteMetadata, "bad")
	bad.panics = true
	good := newFake(actions.KindWriteMetadata, "good")

	s := scheduler.New(scheduler.Options{ProbeInterval: 5 * time.Millisecond})
	residual := s.Schedule(context.Background(), toActions([]*fakeAction{bad, good}))
	if len(residual) != 1 || residual[0] != actions.Action(bad) {
		t.Fatalf("expected panicking action in residual, got %v", residual)
	}
	if !bad.Status().Failed() {
		t.Fatal("panicking action should be marked failed")
	}
	if !good.Status().Succeeded() {
		t.Fatal("other actions should still run")
	}
}

func TestScheduleConcurrentProgressReads(t *testing.T) {
	fakes := make([]*fakeAction, 8)
	for i := range fakes {
		fakes[i] = newFake(actions.KindDownload, fmt.Sprintf("dl-%d", i))
		fakes[i].delay = 5 * time.Millisecond
	}
	s := scheduler.New(scheduler.Options{ParallelDownloads: 4, ProbeInterval: 5 * time.Millisecond})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				snap := s.Progress()
				if snap.Percent < 0 || snap.Percent > 100 {
					t.Errorf("percent out of range: %f", snap.Percent)
					return
				}
			}
		}
	}()
	s.Schedule(context.Background(), toActions(fakes))
	close(stop)
	wg.Wait()
}
