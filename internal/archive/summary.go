package archive

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ticketdesk/internal/fileutil"
)

// SummaryTemplateName is the file name templates init writes.
const SummaryTemplateName = "TICKET_SUMMARY_TEMPLATE.md"

//go:embed summary_template.md
var defaultTemplate string

// DefaultTemplate returns the built-in summary template.
func DefaultTemplate() string {
	return defaultTemplate
}

// WriteDefaultTemplate writes the built-in template to path unless a file is
// already there. It reports whether a file was written.
func WriteDefaultTemplate(path string, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create templates dir: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(defaultTemplate), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// RenderSummary substitutes {{key}} placeholders in template. Unknown
// placeholders are left untouched.
func RenderSummary(template string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", values[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// loadTemplate reads the configured template. ok is false when the file does
// not exist, in which case the caller writes a minimal summary.
func loadTemplate(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read summary template: %w", err)
	}
	return string(data), true, nil
}

func minimalSummary(req Request, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ticket Summary: %s\n\n", req.TicketID)
	fmt.Fprintf(&b, "**Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Status:** RESOLVED (%s)\n\n", resolutionLabel(req.Resolution))
	b.WriteString("## Quick Reference\n\n")
	fmt.Fprintf(&b, "**Ticket ID:** %s\n", req.TicketID)
	fmt.Fprintf(&b, "**Customer ID:** %s\n", req.CustomerID)
	fmt.Fprintf(&b, "**Company:** %s\n\n", req.Company)
	b.WriteString("## Files\n\nSee subdirectories for the complete resolution package.\n")
	return b.String()
}

var titleCaser = cases.Title(language.English)

// resolutionLabel renders "no-issue" as "No-Issue".
func resolutionLabel(r ResolutionType) string {
	return titleCaser.String(string(r))
}

func bulletList(names []string) string {
	if len(names) == 0 {
		return "- None"
	}
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "- " + name
	}
	return strings.Join(lines, "\n")
}

func numberedList(items []string) string {
	if len(items) == 0 {
		return "- None recorded"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

// listFiles returns the regular files directly under dir, sorted.
func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names
}
