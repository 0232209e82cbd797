package metadata

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ticketdesk/internal/extraction"
)

func TestTicketValidatesAgainstSchema(t *testing.T) {
	ticket := Parse("Ticket #13624970\nCompany: Singtech Inc").WithProvenance(Provenance{
		Method:        extraction.MethodTextRecognition,
		Confidence:    0.91,
		OriginalFile:  "scan.pdf",
		ProcessedFile: "2026-01-01_13624970_SingtechInc_TradingPartner-Unknown.pdf",
		Timestamp:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err := ticket.Validate(); err != nil {
		t.Fatalf("expected valid ticket: %v", err)
	}
	data, err := json.Marshal(ticket)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Company != "Singtech Inc" || back.Confidence != 0.91 || back.Timestamp != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected round trip: %+v", back)
	}
}

func TestValidateDocumentRejectsMissingFields(t *testing.T) {
	err := ValidateDocument([]byte(`{"ticket_id": "1", "severity": "SEVERE"}`))
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if err := ValidateDocument([]byte(`{not json`)); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestWithProvenanceDoesNotAlias(t *testing.T) {
	base := Defaults()
	base.RecommendedActions = []string{"one"}
	out := base.WithProvenance(Provenance{Method: extraction.MethodVisionAnalysis, Partial: true})
	out.RecommendedActions[0] = "changed"
	if base.RecommendedActions[0] != "one" {
		t.Fatal("WithProvenance must copy actions")
	}
	if !out.PartialResponse || out.Timestamp == "" {
		t.Fatalf("unexpected provenance: %+v", out)
	}
}
