// Package textutil provides small string helpers for building filesystem-safe
// names from extracted ticket fields.
package textutil
