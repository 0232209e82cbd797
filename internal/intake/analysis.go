package intake

import (
	"fmt"
	"strings"
	"time"

	"ticketdesk/internal/confidence"
	"ticketdesk/internal/extraction"
	"ticketdesk/internal/metadata"
)

// AnalysisDetails carries engine facts shown in the Extraction Details section.
type AnalysisDetails struct {
	Pages        int
	Characters   int
	Preprocessed bool
}

// RenderAnalysis builds preliminary_analysis.md for t.
func RenderAnalysis(t metadata.Ticket, details AnalysisDetails, generated time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Preliminary Analysis - Ticket %s\n\n", t.TicketID)
	fmt.Fprintf(&b, "**Generated:** %s\n", generated.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "**Extraction Method:** %s\n", t.ExtractionMethod.Label())
	fmt.Fprintf(&b, "**Confidence:** %.2f (%s)\n", t.Confidence, confidence.Label(t.Confidence))
	if confidence.NeedsReview(t.Confidence, confidence.ReviewThreshold) {
		b.WriteString("**Review:** Low confidence, verify every field against the source file\n")
	}

	b.WriteString("\n## Ticket Overview\n")
	fmt.Fprintf(&b, "- **Customer:** %s\n", t.CustomerName)
	fmt.Fprintf(&b, "- **Company:** %s\n", t.Company)
	fmt.Fprintf(&b, "- **Trading Partner:** %s\n", t.TradingPartner)
	fmt.Fprintf(&b, "- **Transaction:** %s\n", t.TransactionType)
	fmt.Fprintf(&b, "- **Message ID:** %s\n", t.MessageID)
	fmt.Fprintf(&b, "- **Severity:** %s\n", t.Severity)

	fmt.Fprintf(&b, "\n## Issue Summary\n%s\n", t.IssueTitle)
	fmt.Fprintf(&b, "\n## Root Cause\n%s\n", t.RootCause)

	b.WriteString("\n## Recommended Actions\n")
	if len(t.RecommendedActions) == 0 {
		b.WriteString("No specific actions extracted. Analyst review required.\n")
	}
	for i, action := range t.RecommendedActions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}

	b.WriteString("\n## Next Steps\n")
	b.WriteString("- Analyst to review and verify extraction accuracy\n")
	b.WriteString("- Check the trading partner's implementation guide for the transaction\n")
	b.WriteString("- Search resolved tickets for similar cases\n")

	b.WriteString("\n## Extraction Details\n")
	switch t.ExtractionMethod {
	case extraction.MethodTextRecognition:
		fmt.Fprintf(&b, "- OCR confidence: %.2f\n", t.Confidence)
		fmt.Fprintf(&b, "- Characters extracted: %d\n", details.Characters)
		if details.Pages > 0 {
			fmt.Fprintf(&b, "- Pages: %d\n", details.Pages)
		}
		if details.Preprocessed {
			b.WriteString("- Preprocessing: 5-stage pipeline applied\n")
		} else {
			b.WriteString("- Preprocessing: disabled\n")
		}
	case extraction.MethodVisionAnalysis:
		fmt.Fprintf(&b, "- Vision confidence: %.2f\n", t.Confidence)
		b.WriteString("- Analysis method: Multimodal (audio/video)\n")
		if t.PartialResponse {
			b.WriteString("- Response: partial (budget expired before completion)\n")
		}
	}
	fmt.Fprintf(&b, "- Original file: %s\n", t.OriginalFile)
	fmt.Fprintf(&b, "- Processed file: %s\n", t.ProcessedFile)
	return b.String()
}
