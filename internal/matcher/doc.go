// Package matcher recovers season and episode numbers from file and folder
// names.
//
// Two strategies run in order. When date detection is enabled, the filename
// is searched for any known air date rendered in six common layouts; the
// match closest to the current time wins. Otherwise, or when no date
// matches, the ordered pattern list is evaluated against the lower-cased
// filename (or full path, per pattern) after the show name has been stripped
// so numbers embedded in titles like "24" or "Room 222" do not confuse the
// cascade. The first pattern that yields a season or episode wins; a missing
// capture group reports -1 rather than failing the match.
package matcher
