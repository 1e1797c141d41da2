package actions

import (
	"context"
	"fmt"
	"sync"
)

// Kind identifies an action variant.
type Kind int

const (
	KindCopy Kind = iota
	KindMove
	KindRename
	KindDeleteFile
	KindDeleteDirectory
	KindWriteMetadata
	KindDownload
	KindFetch
	KindTouch
)

var kindNames = map[Kind]string{
	KindCopy:            "copy",
	KindMove:            "move",
	KindRename:          "rename",
	KindDeleteFile:      "delete_file",
	KindDeleteDirectory: "delete_directory",
	KindWriteMetadata:   "write_metadata",
	KindDownload:        "download",
	KindFetch:           "fetch",
	KindTouch:           "touch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Action is one proposed corrective operation.
type Action interface {
	Kind() Kind
	// Name is a short human-readable description.
	Name() string
	// Produces describes the result, typically a target path or URL.
	Produces() string
	// SizeOfWork is a relative weight for progress aggregation.
	SizeOfWork() int64
	// Key identifies the operation across scans.
	Key() string
	Status() *Status
	// Execute performs the operation. Implementations honor ctx where the
	// underlying I/O allows it and report progress through Status.
	Execute(ctx context.Context) error
}

// KeyOf builds the identity key shared by every variant.
func KeyOf(kind Kind, produces string) string {
	return kind.String() + "|" + produces
}

// Status records an action's execution state. It is safe for concurrent use.
type Status struct {
	mu      sync.Mutex
	done    bool
	failed  bool
	message string
	percent float64
}

// Complete marks the action done without error.
func (s *Status) Complete() {
	s.mu.Lock()
	s.done, s.failed, s.message, s.percent = true, false, "", 100
	s.mu.Unlock()
}

// Fail marks the action done with an error.
func (s *Status) Fail(err error) {
	s.mu.Lock()
	s.done, s.failed = true, true
	if err != nil {
		s.message = err.Error()
	}
	s.mu.Unlock()
}

// SetPercent records partial progress in [0,100].
func (s *Status) SetPercent(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.mu.Lock()
	s.percent = p
	s.mu.Unlock()
}

// Reset clears the status so the action can run again.
func (s *Status) Reset() {
	s.mu.Lock()
	s.done, s.failed, s.message, s.percent = false, false, "", 0
	s.mu.Unlock()
}

func (s *Status) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Status) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Status) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Status) Percent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

// Succeeded reports whether the action completed without error.
func (s *Status) Succeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done && !s.failed
}

// Run executes a and records the outcome on its Status.
func Run(ctx context.Context, a Action) error {
	err := a.Execute(ctx)
	if err != nil {
		a.Status().Fail(err)
		return err
	}
	a.Status().Complete()
	return nil
}

type base struct {
	status Status
}

func (b *base) Status() *Status { return &b.status }

func percentOf(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(written) * 100 / float64(total)
}
