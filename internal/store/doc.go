// Package store persists state that outlives a single scan in SQLite: the
// user's ignore list, a history of scans, and the actions each run left
// failed.
//
// The database lives at <state_dir>/showkeeper.db. The schema version is kept
// in PRAGMA user_version; a database written by another version is rejected with
// ErrSchemaMismatch rather than migrated.
package store
