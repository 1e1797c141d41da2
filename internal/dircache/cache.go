// Package dircache keeps recursive directory listings for the folders a scan
// walks, so the differ and its collaborators can query the same folder many
// times without hitting the disk again.
package dircache

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"showkeeper/internal/logging"
)

// File is one regular file found under a cached folder.
type File struct {
	Path    string
	Name    string
	Dir     string
	Size    int64
	ModTime time.Time
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Stem returns the file name without its extension.
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

type listing struct {
	files []File
	dirs  []string
	ok    bool
}

// Cache is safe for concurrent use. Listings are loaded on first request and
// kept until Invalidate is called.
type Cache struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*listing
}

// New returns an empty cache.
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		logger:  logging.NewComponentLogger(logger, "dircache"),
		entries: make(map[string]*listing),
	}
}

// Prefill loads every folder so later readers never populate the cache.
func (c *Cache) Prefill(folders ...string) {
	for _, folder := range folders {
		c.get(folder)
	}
}

// ListFiles returns every regular file under folder, recursively, sorted by
// path. ok is false when the folder itself cannot be read.
func (c *Cache) ListFiles(folder string) ([]File, bool) {
	l := c.get(folder)
	if !l.ok {
		return nil, false
	}
	return append([]File(nil), l.files...), true
}

// ListDirs returns every directory under folder, recursively, excluding the
// folder itself.
func (c *Cache) ListDirs(folder string) ([]string, bool) {
	l := c.get(folder)
	if !l.ok {
		return nil, false
	}
	return append([]string(nil), l.dirs...), true
}

// Invalidate drops the listing for folder and any cached folder beneath it.
func (c *Cache) Invalidate(folder string) {
	folder = filepath.Clean(folder)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key == folder || strings.HasPrefix(key, folder+string(filepath.Separator)) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) get(folder string) *listing {
	folder = filepath.Clean(folder)
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.entries[folder]; ok {
		return l
	}
	l := c.load(folder)
	c.entries[folder] = l
	return l
}

func (c *Cache) load(folder string) *listing {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		c.logger.Debug("folder not accessible",
			logging.String("folder", folder),
			logging.Error(err),
		)
		return &listing{}
	}

	l := &listing{ok: true}
	walkErr := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == folder {
				return err
			}
			c.logger.Debug("skipping unreadable entry",
				logging.String("path", path),
				logging.Error(err),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == folder {
			return nil
		}
		if d.IsDir() {
			l.dirs = append(l.dirs, path)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		l.files = append(l.files, File{
			Path:    path,
			Name:    d.Name(),
			Dir:     filepath.Dir(path),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		logging.WarnWithContext(c.logger, "folder listing failed", "dircache_walk_failed",
			logging.String("folder", folder),
			logging.Error(walkErr),
			logging.String(logging.FieldErrorHint, "check folder permissions"),
			logging.String(logging.FieldImpact, "episodes in this folder will be reported missing"),
		)
		return &listing{}
	}
	sort.Slice(l.files, func(i, j int) bool { return l.files[i].Path < l.files[j].Path })
	sort.Strings(l.dirs)
	return l
}
