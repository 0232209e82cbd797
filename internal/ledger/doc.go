// Package ledger persists intake attempts and archive operations in SQLite.
//
// Every intake attempt, whether run from the CLI or dispatched by the watcher,
// appends one row to the intakes table; archive operations append to the
// archives table. The ledger is append-only and backs the history and status
// commands as well as the daemon's /api/recent endpoint.
package ledger
