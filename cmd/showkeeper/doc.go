// Package main hosts the showkeeper CLI.
//
// The Cobra command tree loads configuration, opens the state database, and
// hands work to internal/scan: `scan` reports what a library is missing and
// what it would change, `run` applies those changes, and `watch` reapplies
// them whenever show folders or catalogue exports change. The remaining
// commands maintain the ignore list, inspect run history, and scaffold
// configuration.
package main
