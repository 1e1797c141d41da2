package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IgnoreEntry is one action the user asked never to see again.
type IgnoreEntry struct {
	Key     string
	Name    string
	AddedAt time.Time
}

// AddIgnore records key in the ignore list. Adding a key twice keeps the
// original entry.
func (s *Store) AddIgnore(ctx context.Context, key, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ignore_list (action_key, name, added_at) VALUES (?, ?, ?)
         ON CONFLICT(action_key) DO NOTHING`,
		key, nullableString(name), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("add ignore: %w", err)
	}
	return nil
}

// RemoveIgnore deletes key from the ignore list. It reports whether the key
// was present.
func (s *Store) RemoveIgnore(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ignore_list WHERE action_key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("remove ignore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ClearIgnored empties the ignore list and returns how many entries it held.
func (s *Store) ClearIgnored(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ignore_list`)
	if err != nil {
		return 0, fmt.Errorf("clear ignore list: %w", err)
	}
	return res.RowsAffected()
}

// ListIgnored returns the ignore list ordered by key.
func (s *Store) ListIgnored(ctx context.Context) ([]IgnoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action_key, name, added_at FROM ignore_list ORDER BY action_key`)
	if err != nil {
		return nil, fmt.Errorf("list ignore: %w", err)
	}
	defer rows.Close()

	var out []IgnoreEntry
	for rows.Next() {
		var (
			entry IgnoreEntry
			name  sql.NullString
			added sql.NullString
		)
		if err := rows.Scan(&entry.Key, &name, &added); err != nil {
			return nil, fmt.Errorf("scan ignore: %w", err)
		}
		entry.Name = name.String
		entry.AddedAt = parseTime(added)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Contains reports whether key is on the ignore list. Lookup errors count as
// not ignored.
func (s *Store) Contains(key string) bool {
	var n int
	err := s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(1) FROM ignore_list WHERE action_key = ?`, key,
	).Scan(&n)
	return err == nil && n > 0
}

// IgnoreSet is an in-memory snapshot of the ignore list.
type IgnoreSet map[string]struct{}

// Contains reports whether key is ignored.
func (s IgnoreSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// LoadIgnoreSet snapshots the ignore list for a scheduling run.
func (s *Store) LoadIgnoreSet(ctx context.Context) (IgnoreSet, error) {
	entries, err := s.ListIgnored(ctx)
	if err != nil {
		return nil, err
	}
	set := make(IgnoreSet, len(entries))
	for _, entry := range entries {
		set[entry.Key] = struct{}{}
	}
	return set, nil
}
