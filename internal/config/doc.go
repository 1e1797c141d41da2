// Package config loads, normalizes, and validates showkeeper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHOWKEEPER_LIBRARY_DIR. The Config type centralizes every knob the scanner,
// differ, and scheduler need: library layout, filename patterns, per-show
// numbering rules, and action parallelism.
//
// Components receive the Config explicitly; there is no process-wide settings
// object, so tests can build isolated configurations with Default().
package config
