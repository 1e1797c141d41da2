// Package services defines shared utilities consumed by the scanner, the
// differ, and the action scheduler.
//
// Key responsibilities:
//   - Context helpers that stamp scan IDs, show identifiers, and queue names
//     for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     consistent classification (lookup, validation, external tool, transient).
package services
