// Package ffprobe reads play length from video files by running ffprobe.
//
// Key types:
//   - Result: the subset of ffprobe's JSON output the differ needs
//   - Prober: runs ffprobe once per file version and caches the play length
//
// The duplicate detector compares a file's play length against its
// neighbours, so a scan probes many files in the same folder; Prober keys its
// cache on path, size and modification time.
package ffprobe
