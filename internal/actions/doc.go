// Package actions defines the corrective operations a scan proposes and the
// scheduler executes.
//
// Every variant implements Action: a human-readable name, a description of
// what it produces (usually a target path or URL), a relative work size used
// for progress weighting, a Status recording completion or failure, and a Key
// that identifies the operation across scans for the user's ignore list.
//
// Variants:
//   - FileOp: copy, move, or rename a file
//   - DeleteFile and DeleteDirectory
//   - WriteNFO: episode metadata sidecar
//   - Download: artwork fetched over HTTP
//   - Fetch: a missing episode requested from a feed endpoint
//   - Touch: align a file's modification time with its air date
package actions
