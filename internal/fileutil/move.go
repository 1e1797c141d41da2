package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MoveFile renames src to dst, falling back to copy and remove when the two
// paths live on different volumes. When verify is set the fallback copy is
// checked with CopyFileVerified before the source is removed.
func MoveFile(src, dst string, verify bool, progress Progress) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}
	copyFn := CopyFile
	if verify {
		copyFn = CopyFileVerified
	}
	if err := copyFn(src, dst, progress); err != nil {
		return fmt.Errorf("cross-volume copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// SameVolume reports whether two paths share a filesystem device. Paths that
// do not exist yet are resolved through their nearest existing ancestor.
func SameVolume(a, b string) (bool, error) {
	devA, err := deviceOf(a)
	if err != nil {
		return false, err
	}
	devB, err := deviceOf(b)
	if err != nil {
		return false, err
	}
	return devA == devB, nil
}

func deviceOf(path string) (uint64, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	for {
		var st unix.Stat_t
		err := unix.Stat(current, &st)
		if err == nil {
			return uint64(st.Dev), nil
		}
		if !errors.Is(err, unix.ENOENT) {
			return 0, fmt.Errorf("stat %q: %w", current, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return 0, fmt.Errorf("no existing ancestor for %q", path)
		}
		current = parent
	}
}
