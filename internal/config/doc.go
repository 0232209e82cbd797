// Package config loads, normalizes, and validates ticketdesk configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and TICKETDESK_BASE_DIR. Every filesystem root the pipeline
// touches (incoming, quarantine, processing, resolution, customers) is derived
// here from a single base directory unless explicitly overridden, so no other
// package hardcodes a location.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
