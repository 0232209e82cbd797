package archive

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ticketdesk/internal/metadata"
)

// AppendHistory appends an entry for req to the customer's history file. The
// file is never created here; ok is false when it does not exist.
func AppendHistory(customersDir string, req Request, intake intakeSnapshot, now time.Time) (path string, ok bool, err error) {
	path = metadata.CustomerHistoryPath(customersDir, req.CustomerID, req.Company)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return path, false, nil
	}
	if err != nil {
		return path, false, fmt.Errorf("stat customer history: %w", err)
	}
	if !info.Mode().IsRegular() {
		return path, false, fmt.Errorf("customer history %s is not a regular file", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return path, false, fmt.Errorf("open customer history: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(historyEntry(req, intake, now)); err != nil {
		return path, false, fmt.Errorf("append customer history: %w", err)
	}
	return path, true, nil
}

func historyEntry(req Request, intake intakeSnapshot, now time.Time) string {
	method := intake.Method
	if method == "" {
		method = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n### Ticket #%s - %s\n", req.TicketID, now.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Status**: Resolved (%s)\n", resolutionLabel(req.Resolution))
	fmt.Fprintf(&b, "**Trading Partner**: %s\n", req.TradingPartner)
	fmt.Fprintf(&b, "**Investigator**: %s\n\n", req.Investigator)
	b.WriteString("**Intake Analysis:**\n")
	fmt.Fprintf(&b, "- Confidence: %.2f\n", intake.Confidence)
	fmt.Fprintf(&b, "- Method: %s\n", method)
	if intake.IssueTitle != "" {
		fmt.Fprintf(&b, "- Issue: %s\n", intake.IssueTitle)
	}
	fmt.Fprintf(&b, "\n**Resolution Folder:** `resolution/%s/`\n\n---\n", metadata.ArchiveFolderName(req.CustomerID, req.Company))
	return b.String()
}
