// Package services defines shared utilities consumed by the intake pipeline,
// the archiver, and the watcher.
//
// Key responsibilities:
//   - Context helpers that stamp ticket IDs, stage names, source files, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper; Kind translates a failure
//     into the stable taxonomy name recorded in quarantine files and the ledger.
//
// Use these helpers when wiring new pipeline logic so failure classification
// and observability stay uniform.
package services
