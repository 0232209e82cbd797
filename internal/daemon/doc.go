// Package daemon runs the long-lived ticketdesk watcher process.
//
// It wires configuration, the intake ledger, the incoming-directory watcher,
// and a prometheus registry into one lifecycle guarded by a flock so only a
// single watcher owns the incoming directory. When daemon.api_bind is set it
// also serves /api/status, /api/recent, and /metrics behind an optional bearer
// token.
//
// Intake itself stays in the worker processes the watcher launches; the daemon
// only handles startup, shutdown, and reporting.
package daemon
