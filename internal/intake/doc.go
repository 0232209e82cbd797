// Package intake runs a single ticket file through routing, extraction,
// metadata parsing, and artifact writing.
//
// A successful intake produces processing/ticket_<id>/ with metadata.json,
// preliminary_analysis.md, and a copy of the source under its standardized
// name. Any failure after routing copies the source into the quarantine
// directory next to a <stem>_error.json report. Unsupported extensions fail
// immediately without touching the filesystem. Every attempt is recorded in
// the ledger when one is attached.
package intake
