// Command ticketdesk is the analyst-facing CLI for the ticket pipeline.
//
// It runs a single intake (the same entry point the watcher daemon uses as its
// worker), packages resolved tickets into the resolution tree, verifies those
// packages, and reports pipeline health from the ledger and local checks.
package main
