// Package textutil provides small text helpers shared by the numbering engine
// and the library differ.
//
// The primary use cases are:
//   - Sanitizing episode titles for use as filenames
//   - Computing the longest common leading substring across episode titles
package textutil
