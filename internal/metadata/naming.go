package metadata

import (
	"path/filepath"
	"strings"
	"time"

	"ticketdesk/internal/textutil"
)

var pathSeparators = strings.NewReplacer("/", "", "\\", "")

// ProcessedFilename builds
// {date}_{ticket}_{company}_TradingPartner-{partner}[_{transaction}]{ext}.
// The transaction segment is omitted when the type is empty or Unknown.
func ProcessedFilename(t Ticket, ext string, now time.Time) string {
	company := strings.ReplaceAll(pathSeparators.Replace(orDefault(t.Company, DefaultName)), " ", "")
	partner := strings.ReplaceAll(pathSeparators.Replace(orDefault(t.TradingPartner, DefaultName)), " ", "")
	name := now.Format("2006-01-02") + "_" + pathSeparators.Replace(orDefault(t.TicketID, DefaultTicketID)) +
		"_" + company + "_TradingPartner-" + partner
	if transaction := strings.TrimSpace(t.TransactionType); transaction != "" && !strings.EqualFold(transaction, DefaultTransactionType) {
		name += "_" + strings.ReplaceAll(pathSeparators.Replace(transaction), " ", "-")
	}
	return textutil.StripUnsafe(name + ext)
}

// TicketFolderName is the processing folder for a ticket id.
func TicketFolderName(ticketID string) string {
	return "ticket_" + textutil.FolderToken(orDefault(ticketID, DefaultTicketID))
}

// ArchiveFolderName is the resolution folder for a customer and company.
func ArchiveFolderName(customerID, company string) string {
	return textutil.FolderToken(customerID) + "_" + textutil.FolderToken(company)
}

// CustomerHistoryPath is the history file for a customer under dir.
func CustomerHistoryPath(dir, customerID, company string) string {
	return filepath.Join(dir, ArchiveFolderName(customerID, company)+".md")
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
