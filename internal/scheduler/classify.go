package scheduler

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"showkeeper/internal/actions"
)

const (
	QueueMove     = "move"
	QueueQuick    = "quick"
	QueueWrite    = "write"
	QueueDownload = "download"
)

const (
	moveLimit  = 1
	quickLimit = 1
	writeLimit = 4
)

// Queue is one ordered lane of actions with its own parallelism limit.
type Queue struct {
	Name    string
	Limit   int
	Actions []actions.Action

	next     int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
}

func newQueue(name string, limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{Name: name, Limit: limit, sem: semaphore.NewWeighted(int64(limit))}
}

// Pending reports whether the queue has undispatched actions.
func (q *Queue) Pending() bool {
	return q.next < len(q.Actions)
}

// InFlight returns the number of actions currently executing.
func (q *Queue) InFlight() int {
	return int(q.inFlight.Load())
}

// Peak returns the highest in-flight count observed.
func (q *Queue) Peak() int {
	return int(q.peak.Load())
}

func (q *Queue) enter() {
	n := q.inFlight.Add(1)
	for {
		peak := q.peak.Load()
		if n <= peak || q.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (q *Queue) leave() {
	q.inFlight.Add(-1)
}

// VolumeFunc reports whether two paths share a volume.
type VolumeFunc func(a, b string) (bool, error)

// transfer is implemented by actions that read from a source path.
type transfer interface {
	Source() string
}

// Classify partitions list into the four fixed queues, returned in the order
// move, quick, write, download. Declared order is preserved within a queue.
func Classify(list []actions.Action, parallelDownloads int, sameVolume VolumeFunc) []*Queue {
	move := newQueue(QueueMove, moveLimit)
	quick := newQueue(QueueQuick, quickLimit)
	write := newQueue(QueueWrite, writeLimit)
	download := newQueue(QueueDownload, parallelDownloads)

	for _, a := range list {
		if a == nil {
			continue
		}
		var q *Queue
		switch a.Kind() {
		case actions.KindCopy, actions.KindMove, actions.KindRename:
			q = move
			if isQuick(a, sameVolume) {
				q = quick
			}
		case actions.KindTouch:
			q = move
		case actions.KindDeleteFile, actions.KindDeleteDirectory:
			q = quick
		case actions.KindWriteMetadata:
			q = write
		case actions.KindDownload, actions.KindFetch:
			q = download
		default:
			q = move
		}
		q.Actions = append(q.Actions, a)
	}
	return []*Queue{move, quick, write, download}
}

func isQuick(a actions.Action, sameVolume VolumeFunc) bool {
	t, ok := a.(transfer)
	if !ok || sameVolume == nil {
		return false
	}
	same, err := sameVolume(t.Source(), a.Produces())
	return err == nil && same
}
