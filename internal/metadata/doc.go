// Package metadata turns extracted ticket text into a validated Ticket record.
//
// Two parsers share one output type. Parse runs the ordered regular-expression
// cascade over recognized document text. ParseStructured reads the
// "Field: Value" block, root cause and recommended steps sections, and any
// embedded JSON object from a vision-analysis response, and falls back to the
// cascade for whatever it cannot fill. Both normalize input to NFC with LF line
// endings and apply field defaults before returning.
//
// Naming helpers build the standardized processed filename and the ticket and
// resolution folder names, and the embedded JSON schema validates
// metadata.json documents on write and during archive verification.
package metadata
