// Package scheduler executes a batch of proposed actions across four queues
// with independent parallelism limits.
//
// Classify partitions actions by kind: cross-volume copies and moves plus
// timestamp touches go to the serial move queue, same-volume renames and
// deletions to the serial quick queue, metadata writes to the write queue
// (limit 4), and downloads and feed fetches to the download queue (limit set
// by configuration).
//
// Schedule runs one dispatcher loop. Each pass probes every queue that still
// has undispatched actions, waiting at most the probe interval (20ms by
// default) for a free slot. A dispatched worker signals once it is running so
// the dispatcher's accounting never races the worker. Pause stops new
// dispatch without touching running work; cancelling the context stops
// dispatch within one probe and hands running workers a cancelled context.
// Workers still running after the cancel grace period are abandoned.
//
// Schedule returns the actions that did not complete successfully, minus any
// the user has chosen to ignore.
package scheduler
