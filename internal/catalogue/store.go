package catalogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"showkeeper/internal/episodes"
	"showkeeper/internal/logging"
	"showkeeper/internal/services"
)

// Source is the catalogue contract the scanner depends on.
type Source interface {
	GetSeries(showID string) (*episodes.RawSeries, bool)
	Lock()
	Unlock()
}

// Store loads catalogue exports from disk and keeps them in memory.
type Store struct {
	dir    string
	logger *slog.Logger

	lock sync.Mutex

	mu     sync.RWMutex
	series map[string]*episodes.RawSeries
}

// NewStore creates a store rooted at dir. Files are read lazily.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "catalogue"),
		series: make(map[string]*episodes.RawSeries),
	}
}

// Lock acquires the catalogue lock.
func (s *Store) Lock() { s.lock.Lock() }

// Unlock releases the catalogue lock.
func (s *Store) Unlock() { s.lock.Unlock() }

// GetSeries returns the series for showID. A missing or unreadable export is
// reported as absent; the caller treats that as nothing to do.
func (s *Store) GetSeries(showID string) (*episodes.RawSeries, bool) {
	showID = strings.TrimSpace(showID)
	if showID == "" {
		return nil, false
	}

	s.mu.RLock()
	series, ok := s.series[showID]
	s.mu.RUnlock()
	if ok {
		return series, series != nil
	}

	series, err := s.load(showID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.logger.Debug("no catalogue export for show", logging.String(logging.FieldShow, showID))
		} else {
			logging.WarnWithContext(s.logger, "failed to load catalogue export", "catalogue_load_failed",
				logging.String(logging.FieldShow, showID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "re-export the show's catalogue file"),
				logging.String(logging.FieldImpact, "show skipped this scan"),
			)
		}
	}

	s.mu.Lock()
	s.series[showID] = series
	s.mu.Unlock()
	return series, series != nil
}

// Preload reads the exports for ids into memory so later lookups made under
// the catalogue lock never touch disk.
func (s *Store) Preload(ids ...string) {
	for _, id := range ids {
		s.GetSeries(id)
	}
}

// Put stores a series in memory and writes its export file.
func (s *Store) Put(series *episodes.RawSeries) error {
	if series == nil || strings.TrimSpace(series.ID) == "" {
		return services.Wrap(services.ErrValidation, "catalogue", "put", "series id is required", nil)
	}
	path, err := s.pathFor(series.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create catalogue dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace series: %w", err)
	}

	s.mu.Lock()
	s.series[series.ID] = series
	s.mu.Unlock()
	return nil
}

// Reset drops every cached series so the next lookup rereads disk.
func (s *Store) Reset() {
	s.mu.Lock()
	s.series = make(map[string]*episodes.RawSeries)
	s.mu.Unlock()
}

func (s *Store) load(showID string) (*episodes.RawSeries, error) {
	path, err := s.pathFor(showID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "catalogue", "load", showID, nil)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var series episodes.RawSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalogue", "decode", path, err)
	}
	if series.ID == "" {
		series.ID = showID
	}
	return &series, nil
}

func (s *Store) pathFor(showID string) (string, error) {
	if strings.ContainsAny(showID, `/\`) || showID == "." || showID == ".." {
		return "", services.Wrap(services.ErrValidation, "catalogue", "path", fmt.Sprintf("invalid show id %q", showID), nil)
	}
	return filepath.Join(s.dir, showID+".json"), nil
}
