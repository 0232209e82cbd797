// Package watcher observes the incoming directory and dispatches each new
// ticket file to an isolated intake worker process.
//
// Deduplication uses an in-memory in-flight set keyed by path. The set does
// not survive a restart; the ledger records every attempt so repeats after a
// restart are visible even though they are not prevented.
package watcher
