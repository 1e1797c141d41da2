// Package library compares a show's numbered episode list against the files
// on disk.
//
// Index maps every video file under a show's folders to the episode slots it
// covers using the filename matcher. From that index the Differ derives the
// episodes that are missing, pairs of episodes that look like the same
// broadcast listed twice, and the corrective actions a scan proposes:
// renames into the configured layout, metadata sidecars, artwork downloads,
// timestamp touches, junk deletion, empty folder cleanup, and feed fetches
// for missing episodes.
package library
