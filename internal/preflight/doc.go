// Package preflight provides readiness checks for the ticket tree, disk
// space, credentials, and the watcher lock.
//
// The daemon runs RunAll at startup and logs any failure; the CLI status
// command renders the same results alongside dependency checks.
package preflight
