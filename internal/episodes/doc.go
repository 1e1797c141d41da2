// Package episodes turns raw catalogue data into the numbered episode list the
// differ reconciles against the library.
//
// Generate copies one season of raw episodes, sorts them by the show's chosen
// ordering, optionally folds season 0 specials into their airs-before slot,
// applies the show's numbering rules in declaration order, and drops entries a
// rule marked as ignored. Every step is followed by a renumbering pass that
// restores contiguous primary numbers while preserving multi-episode spans.
//
// The package performs no I/O and holds no state between calls.
package episodes
