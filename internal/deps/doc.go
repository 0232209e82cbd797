// Package deps checks the external binaries ticketdesk shells out to and
// reports their availability and version for status output.
package deps
