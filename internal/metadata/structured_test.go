package metadata

import (
	"reflect"
	"testing"
)

const visionResponse = `**Ticket ID:** #13624970
**Company:** Singtech Inc
**Trading Partner:** Target
**Transaction Type:** 856 ASN
**Message ID:** MSG-4471
**Issue Title:** ASN rejected for missing carton labels
**Severity:** medium

Brief issue summary: Target's portal rejected three ASNs this morning. It is urgent.

Likely Root Cause: The HL loop omits the MAN segment
for pallet-level packaging.
Recommended Next Steps:
1. Add MAN segments to the pallet HL loop
2. Resend the ASN
   after validating with the partner map
- Confirm the 997 acceptance
`

func TestParseStructuredReadsFieldBlock(t *testing.T) {
	ticket := ParseStructured(visionResponse)
	if ticket.TicketID != "13624970" || ticket.Company != "Singtech Inc" || ticket.TradingPartner != "Target" {
		t.Fatalf("unexpected identity fields: %+v", ticket)
	}
	if ticket.TransactionType != "856 ASN" || ticket.MessageID != "MSG-4471" {
		t.Fatalf("unexpected transaction fields: %+v", ticket)
	}
	if ticket.IssueTitle != "ASN rejected for missing carton labels" {
		t.Fatalf("unexpected title %q", ticket.IssueTitle)
	}
	if ticket.Severity != SeverityMedium {
		t.Fatalf("reported severity must not be overridden by keywords, got %s", ticket.Severity)
	}
	if ticket.RootCause != "The HL loop omits the MAN segment\nfor pallet-level packaging." {
		t.Fatalf("unexpected root cause %q", ticket.RootCause)
	}
	want := []string{
		"Add MAN segments to the pallet HL loop",
		"Resend the ASN after validating with the partner map",
		"Confirm the 997 acceptance",
	}
	if !reflect.DeepEqual(ticket.RecommendedActions, want) {
		t.Fatalf("actions = %#v", ticket.RecommendedActions)
	}
}

func TestParseStructuredFallsBackToCascade(t *testing.T) {
	ticket := ParseStructured("The caller from Acme mentioned ticket 7654321 about the 810 Invoice. Customer: Bob Smith\nThis is critical.")
	if ticket.TicketID != "7654321" || ticket.TransactionType != "810 Invoice" || ticket.CustomerName != "Bob Smith" {
		t.Fatalf("cascade fallback failed: %+v", ticket)
	}
	if ticket.Severity != SeverityHigh {
		t.Fatalf("keyword severity expected without reported severity, got %s", ticket.Severity)
	}
}

func TestParseStructuredUsesEmbeddedJSON(t *testing.T) {
	response := "Here is the extraction:\n```json\n" +
		`{"ticket_id": "#13624971", "company": "Nordic Foods", "severity": "low", "recommended_actions": ["Re-map N1 loop", "Retest"], "nested": {"a": "}"}}` +
		"\n```\nTrading Partner: Kroger"
	ticket := ParseStructured(response)
	if ticket.TicketID != "13624971" || ticket.Company != "Nordic Foods" || ticket.TradingPartner != "Kroger" {
		t.Fatalf("unexpected fields: %+v", ticket)
	}
	if ticket.Severity != SeverityLow {
		t.Fatalf("severity = %s", ticket.Severity)
	}
	if !reflect.DeepEqual(ticket.RecommendedActions, []string{"Re-map N1 loop", "Retest"}) {
		t.Fatalf("actions = %#v", ticket.RecommendedActions)
	}
}

func TestEmbeddedJSONSkipsUndecodableObjects(t *testing.T) {
	obj, ok := EmbeddedJSON("first {not json} then {\"company\": \"Acme\"}")
	if !ok || obj["company"] != "Acme" {
		t.Fatalf("expected second object, got %v %v", obj, ok)
	}
	if _, ok := EmbeddedJSON("no braces"); ok {
		t.Fatal("expected no object")
	}
	if _, ok := EmbeddedJSON("{\"unterminated\": 1"); ok {
		t.Fatal("expected no object for unbalanced input")
	}
}
