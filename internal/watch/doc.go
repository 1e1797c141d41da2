// Package watch monitors show folders and the catalogue directory and
// triggers a reconcile once the tree has been quiet for the configured
// debounce interval.
package watch
