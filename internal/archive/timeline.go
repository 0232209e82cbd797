package archive

import (
	"fmt"
	"time"
)

// Timeline is metadata/timeline.json.
type Timeline struct {
	TicketID string          `json:"ticket_id"`
	Events   []TimelineEvent `json:"events"`
}

// TimelineEvent is one dated step in a ticket's life.
type TimelineEvent struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Phase     string `json:"phase"`
}

const (
	phaseIntake  = "0"
	phaseArchive = "7"
)

// buildTimeline records receipt, intake analysis, and archival. Intake events
// fall back to the archive time when the intake timestamp is unknown.
func buildTimeline(ticketID string, intake intakeSnapshot, now time.Time) Timeline {
	archived := now.Format(time.RFC3339)
	received := intake.Timestamp
	if received == "" {
		received = archived
	}
	return Timeline{
		TicketID: ticketID,
		Events: []TimelineEvent{
			{Timestamp: received, Event: "File received in incoming/", Phase: phaseIntake},
			{Timestamp: received, Event: fmt.Sprintf("Phase 0 analysis complete (confidence: %.2f)", intake.Confidence), Phase: phaseIntake},
			{Timestamp: archived, Event: "Ticket archived", Phase: phaseArchive},
		},
	}
}
