package metadata

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize converts text to NFC and LF line endings.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Parse runs the regex cascade over recognized document text.
func Parse(text string) Ticket {
	text = Normalize(text)
	t := Defaults()
	applyCascade(&t, text, false)
	t.Severity = KeywordSeverity(text)
	t.KeyValues = ExtractKeyValues(text)
	t.RawText = text
	return t.validated()
}

// applyCascade fills fields from the rule lists. With onlyDefaults set, fields
// already differing from their defaults are left alone.
func applyCascade(t *Ticket, text string, onlyDefaults bool) {
	d := Defaults()
	fields := []struct {
		target   *string
		fallback string
		rules    []Rule
	}{
		{&t.TicketID, d.TicketID, TicketIDRules},
		{&t.CustomerName, d.CustomerName, CustomerRules},
		{&t.Company, d.Company, CompanyRules},
		{&t.TradingPartner, d.TradingPartner, TradingPartnerRules},
		{&t.TransactionType, d.TransactionType, TransactionRules},
		{&t.MessageID, d.MessageID, MessageIDRules},
		{&t.IssueTitle, d.IssueTitle, IssueTitleRules},
	}
	for _, f := range fields {
		if onlyDefaults && strings.TrimSpace(*f.target) != "" && *f.target != f.fallback {
			continue
		}
		if value, _, ok := FirstMatch(f.rules, text); ok {
			*f.target = value
		}
	}
}
