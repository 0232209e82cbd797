package metadata

import (
	"strings"
	"time"

	"ticketdesk/internal/extraction"
)

// Severity is the ticket urgency bucket.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityNormal Severity = "NORMAL"
	SeverityLow    Severity = "LOW"
)

// ParseSeverity maps value onto the enum, reporting false for anything else.
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(value))) {
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityNormal:
		return SeverityNormal, true
	case SeverityLow:
		return SeverityLow, true
	default:
		return "", false
	}
}

// Field defaults applied when extraction finds nothing.
const (
	DefaultTicketID        = "UNKNOWN"
	DefaultName            = "Unknown"
	DefaultMessageID       = "N/A"
	DefaultIssueTitle      = "Issue extracted from OCR"
	DefaultRootCause       = "Pending investigation"
	DefaultSeverity        = SeverityNormal
	DefaultTransactionType = DefaultName
)

// Ticket is the metadata record persisted as metadata.json.
type Ticket struct {
	TicketID           string            `json:"ticket_id"`
	CustomerName       string            `json:"customer_name"`
	Company            string            `json:"company"`
	TradingPartner     string            `json:"trading_partner"`
	TransactionType    string            `json:"transaction_type"`
	MessageID          string            `json:"message_id"`
	Severity           Severity          `json:"severity"`
	IssueTitle         string            `json:"issue_title"`
	RootCause          string            `json:"root_cause"`
	RecommendedActions []string          `json:"recommended_actions"`
	Confidence         float64           `json:"confidence"`
	ExtractionMethod   extraction.Method `json:"extraction_method"`
	OriginalFile       string            `json:"original_file"`
	ProcessedFile      string            `json:"processed_file"`
	Timestamp          string            `json:"timestamp"`
	PartialResponse    bool              `json:"partial_response,omitempty"`
	RawText            string            `json:"raw_text,omitempty"`
	KeyValues          map[string]string `json:"key_values,omitempty"`
}

// Provenance is attached once extraction and naming are known.
type Provenance struct {
	Method        extraction.Method
	Confidence    float64
	Partial       bool
	OriginalFile  string
	ProcessedFile string
	Timestamp     time.Time
}

// Defaults returns a ticket with every field at its default.
func Defaults() Ticket {
	return Ticket{
		TicketID:           DefaultTicketID,
		CustomerName:       DefaultName,
		Company:            DefaultName,
		TradingPartner:     DefaultName,
		TransactionType:    DefaultTransactionType,
		MessageID:          DefaultMessageID,
		Severity:           DefaultSeverity,
		IssueTitle:         DefaultIssueTitle,
		RootCause:          DefaultRootCause,
		RecommendedActions: []string{},
	}
}

// WithProvenance returns a copy of t carrying the extraction outcome and file
// names. The receiver is not modified.
func (t Ticket) WithProvenance(p Provenance) Ticket {
	out := t
	out.RecommendedActions = append([]string{}, t.RecommendedActions...)
	out.ExtractionMethod = p.Method
	out.Confidence = p.Confidence
	out.PartialResponse = p.Partial
	out.OriginalFile = p.OriginalFile
	out.ProcessedFile = p.ProcessedFile
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	out.Timestamp = ts.Format(time.RFC3339)
	return out
}

// validated replaces empty or out-of-enum values with their defaults.
func (t Ticket) validated() Ticket {
	d := Defaults()
	fill := func(target *string, fallback string) {
		if value := strings.TrimSpace(*target); value != "" {
			*target = value
			return
		}
		*target = fallback
	}
	fill(&t.TicketID, d.TicketID)
	fill(&t.CustomerName, d.CustomerName)
	fill(&t.Company, d.Company)
	fill(&t.TradingPartner, d.TradingPartner)
	fill(&t.TransactionType, d.TransactionType)
	fill(&t.MessageID, d.MessageID)
	fill(&t.IssueTitle, d.IssueTitle)
	fill(&t.RootCause, d.RootCause)
	if severity, ok := ParseSeverity(string(t.Severity)); ok {
		t.Severity = severity
	} else {
		t.Severity = DefaultSeverity
	}
	actions := make([]string, 0, len(t.RecommendedActions))
	for _, action := range t.RecommendedActions {
		if action = strings.TrimSpace(action); action != "" {
			actions = append(actions, action)
		}
	}
	t.RecommendedActions = actions
	return t
}
