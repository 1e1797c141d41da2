package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"showkeeper/internal/fileutil"
	"showkeeper/internal/services"
)

// Op selects what FileOp does with its source.
type Op int

const (
	OpCopy Op = iota
	OpMove
	OpRename
)

// FileOp copies, moves, or renames a file into the library.
type FileOp struct {
	base
	Op     Op
	From   string
	To     string
	Verify bool
	// Episode is an optional label such as S01E02 shown alongside the name.
	Episode string

	size int64
}

// NewFileOp builds a FileOp, sizing its work from the source file.
func NewFileOp(op Op, from, to string) *FileOp {
	a := &FileOp{Op: op, From: from, To: to, size: 1}
	if info, err := os.Stat(from); err == nil && info.Size() > 0 {
		a.size = info.Size()
	}
	return a
}

func (a *FileOp) Kind() Kind {
	switch a.Op {
	case OpCopy:
		return KindCopy
	case OpMove:
		return KindMove
	default:
		return KindRename
	}
}

func (a *FileOp) Name() string {
	verb := map[Op]string{OpCopy: "Copy", OpMove: "Move", OpRename: "Rename"}[a.Op]
	if a.Episode != "" {
		return fmt.Sprintf("%s %s", verb, a.Episode)
	}
	return fmt.Sprintf("%s %s", verb, filepath.Base(a.From))
}

func (a *FileOp) Produces() string  { return a.To }
func (a *FileOp) SizeOfWork() int64 { return a.size }
func (a *FileOp) Key() string       { return KeyOf(a.Kind(), a.To) }

// Source returns the path the operation reads from.
func (a *FileOp) Source() string { return a.From }

func (a *FileOp) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.checkDestination(); err != nil {
		return err
	}
	progress := func(written, total int64) {
		a.status.SetPercent(percentOf(written, total))
	}
	var err error
	switch a.Op {
	case OpCopy:
		if a.Verify {
			err = fileutil.CopyFileVerified(a.From, a.To, progress)
		} else {
			err = fileutil.CopyFile(a.From, a.To, progress)
		}
	default:
		err = fileutil.MoveFile(a.From, a.To, a.Verify, progress)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "actions", a.Kind().String(), a.From, err)
	}
	return nil
}

// checkDestination refuses to overwrite a different file. A destination that
// is the source itself, as in a case-only rename, is allowed.
func (a *FileOp) checkDestination() error {
	dst, err := os.Stat(a.To)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if src, err := os.Stat(a.From); err == nil && os.SameFile(src, dst) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "actions", a.Kind().String(), "destination already exists: "+a.To, nil)
}

// DeleteFile removes a single file.
type DeleteFile struct {
	base
	Path string
	// Reason is shown in listings, e.g. the delete pattern that matched.
	Reason string
}

func NewDeleteFile(path, reason string) *DeleteFile {
	return &DeleteFile{Path: path, Reason: reason}
}

func (a *DeleteFile) Kind() Kind        { return KindDeleteFile }
func (a *DeleteFile) Name() string      { return "Delete " + filepath.Base(a.Path) }
func (a *DeleteFile) Produces() string  { return a.Path }
func (a *DeleteFile) SizeOfWork() int64 { return 1 }
func (a *DeleteFile) Key() string       { return KeyOf(KindDeleteFile, a.Path) }

func (a *DeleteFile) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrTransient, "actions", "delete_file", a.Path, err)
	}
	return nil
}

// DeleteDirectory removes an empty directory.
type DeleteDirectory struct {
	base
	Path string
}

func NewDeleteDirectory(path string) *DeleteDirectory {
	return &DeleteDirectory{Path: path}
}

func (a *DeleteDirectory) Kind() Kind        { return KindDeleteDirectory }
func (a *DeleteDirectory) Name() string      { return "Remove folder " + filepath.Base(a.Path) }
func (a *DeleteDirectory) Produces() string  { return a.Path }
func (a *DeleteDirectory) SizeOfWork() int64 { return 1 }
func (a *DeleteDirectory) Key() string       { return KeyOf(KindDeleteDirectory, a.Path) }

func (a *DeleteDirectory) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrTransient, "actions", "delete_directory", a.Path, err)
	}
	return nil
}

// Touch sets a file's access and modification times.
type Touch struct {
	base
	Path string
	When time.Time
}

func NewTouch(path string, when time.Time) *Touch {
	return &Touch{Path: path, When: when}
}

func (a *Touch) Kind() Kind        { return KindTouch }
func (a *Touch) Name() string      { return "Touch " + filepath.Base(a.Path) }
func (a *Touch) Produces() string  { return a.Path }
func (a *Touch) SizeOfWork() int64 { return 1 }
func (a *Touch) Key() string       { return KeyOf(KindTouch, a.Path) }

func (a *Touch) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Chtimes(a.Path, a.When, a.When); err != nil {
		return services.Wrap(services.ErrTransient, "actions", "touch", a.Path, err)
	}
	return nil
}
