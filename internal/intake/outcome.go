package intake

import (
	"ticketdesk/internal/extraction"
	"ticketdesk/internal/metadata"
	"ticketdesk/internal/router"
)

// Outcome statuses reported to callers.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the result of one intake attempt.
type Outcome struct {
	Status           string              `json:"status"`
	Message          string              `json:"message"`
	RequestID        string              `json:"request_id"`
	SourcePath       string              `json:"source_path"`
	TicketID         string              `json:"ticket_id,omitempty"`
	TicketFolder     string              `json:"ticket_folder,omitempty"`
	MetadataFile     string              `json:"metadata_file,omitempty"`
	AnalysisFile     string              `json:"analysis_file,omitempty"`
	ProcessedFile    string              `json:"processed_file,omitempty"`
	Confidence       float64             `json:"confidence"`
	ConfidenceLabel  string              `json:"confidence_label,omitempty"`
	NeedsReview      bool                `json:"needs_review"`
	ExtractionMethod extraction.Method   `json:"extraction_method,omitempty"`
	FileType         router.Category     `json:"file_type"`
	SupportedTypes   map[string][]string `json:"supported_types,omitempty"`
	ErrorKind        string              `json:"error_kind,omitempty"`
	FailedPath       string              `json:"failed_path,omitempty"`
	ErrorFile        string              `json:"error_file,omitempty"`

	Ticket *metadata.Ticket `json:"-"`
	Err    error            `json:"-"`
}

// Succeeded reports whether the intake produced a ticket folder.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
