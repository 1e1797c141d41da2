// Package logging assembles structured slog loggers and formatting helpers used
// across showkeeper.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scan and scheduler code can
// tag log lines with scan IDs, shows, and queue names. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
