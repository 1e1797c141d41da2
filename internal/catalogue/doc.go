// Package catalogue serves raw episode data for configured shows from a
// directory of exported catalogue files, one <show_id>.json per show.
//
// Store implements Source. Its Lock/Unlock pair guards read sequences that
// must see one consistent view of a show; callers hold it only while numbering
// and release it before doing any file or network I/O.
package catalogue
