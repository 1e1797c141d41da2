// Package scan drives one reconciliation pass over the configured shows.
//
// A Runner takes the single-instance lock, numbers every show from the
// catalogue, reconciles the numbered lists against the library through the
// differ, and hands the proposed actions to the scheduler. Each scan carries
// a UUID that is attached to every log line and to the history stored in the
// state database.
package scan
