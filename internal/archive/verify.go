package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ticketdesk/internal/confidence"
	"ticketdesk/internal/metadata"
	"ticketdesk/internal/services"
)

// RequiredMetadataFields must be present in analysis/metadata.json.
var RequiredMetadataFields = []string{
	"ticket_id", "company", "trading_partner", "transaction_type", "severity", "issue_title",
	"confidence", "timestamp", "original_file", "processed_file", "extraction_method",
}

// Finding is one verification result. Kind carries the error taxonomy name for
// issues and is empty for warnings.
type Finding struct {
	Message        string `json:"message"`
	Kind           string `json:"kind,omitempty"`
	Recommendation string `json:"recommendation"`
}

// Report is the outcome of Verify.
type Report struct {
	Folder          string    `json:"folder"`
	Issues          []Finding `json:"issues"`
	Warnings        []Finding `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
	TicketID        string    `json:"ticket_id,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
}

// Passed reports whether no issue was found. Warnings do not fail a package.
func (r Report) Passed() bool {
	return len(r.Issues) == 0
}

// Err summarizes the issues as an ArchiveStructureIncomplete error, or nil.
func (r Report) Err() error {
	if r.Passed() {
		return nil
	}
	return services.Wrap(services.ErrArchiveIncomplete, "verify", "check package",
		fmt.Sprintf("%d issue(s) in %s", len(r.Issues), r.Folder), nil)
}

func (r *Report) issue(marker error, message, recommendation string) {
	r.Issues = append(r.Issues, Finding{
		Message:        message,
		Kind:           services.Kind(marker),
		Recommendation: recommendation,
	})
}

func (r *Report) warn(message, recommendation string) {
	r.Warnings = append(r.Warnings, Finding{Message: message, Recommendation: recommendation})
}

// Verify inspects a resolution package. It only returns an error when the
// folder cannot be read at all for reasons other than not existing.
func Verify(folder string) (Report, error) {
	report := Report{Folder: folder, Issues: []Finding{}, Warnings: []Finding{}}
	info, err := os.Stat(folder)
	switch {
	case errors.Is(err, os.ErrNotExist):
		report.issue(services.ErrNotFound, "archive folder does not exist", "Run ticketdesk archive to create the package")
		report.finish()
		return report, nil
	case err != nil:
		return report, fmt.Errorf("stat archive folder: %w", err)
	case !info.IsDir():
		report.issue(services.ErrArchiveIncomplete, "archive path is not a directory", "Point verify at a resolution/<customer>_<company> folder")
		report.finish()
		return report, nil
	}

	for _, sub := range Subdirectories {
		if !isDir(filepath.Join(folder, sub)) {
			report.issue(services.ErrArchiveIncomplete, "missing directory: "+sub+"/", "Re-run ticketdesk archive to recreate missing directories")
		}
	}
	if !isFile(filepath.Join(folder, SummaryFile)) {
		report.issue(services.ErrArchiveIncomplete, "missing "+SummaryFile, "Re-run ticketdesk archive to regenerate the summary")
	}

	report.checkIntakeMetadata(filepath.Join(folder, "analysis", IntakeMetadataFile))
	if !isFile(filepath.Join(folder, "analysis", AnalysisFile)) {
		report.issue(services.ErrArchiveIncomplete, "missing analysis/"+AnalysisFile, "Verify the ticket's processing folder contains intake artifacts")
	}

	if _, ok := firstMedia(filepath.Join(folder, "original_files")); !ok {
		report.warn("no original ticket file in original_files/", "Copy the source PDF, image, or recording into original_files/")
	}
	if len(listFiles(filepath.Join(folder, "investigation"))) == 0 {
		report.warn("no investigation report in investigation/", "Save the investigation report once the investigation is written up")
	}
	if len(listFiles(filepath.Join(folder, "resolution"))) == 0 {
		report.warn("no customer response in resolution/", "Save the final customer response once it has been sent")
	}

	if meta, err := decodeTicketMetadata(filepath.Join(folder, "metadata", TicketMetadataFile)); err == nil {
		if report.TicketID == "" {
			report.TicketID = meta.TicketID
		}
	} else if errors.Is(err, services.ErrParseFailure) {
		report.issue(services.ErrParseFailure, "metadata/"+TicketMetadataFile+" is not valid JSON", "Re-run ticketdesk archive to regenerate package metadata")
	} else {
		report.issue(services.ErrArchiveIncomplete, "missing metadata/"+TicketMetadataFile, "Re-run ticketdesk archive to regenerate package metadata")
	}

	report.finish()
	return report, nil
}

func (r *Report) checkIntakeMetadata(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.issue(services.ErrArchiveIncomplete, "missing analysis/"+IntakeMetadataFile, "Check that intake completed for this ticket and re-run ticketdesk archive")
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		r.issue(services.ErrParseFailure, "analysis/"+IntakeMetadataFile+" is not valid JSON", "Restore metadata.json from the ticket's processing folder")
		return
	}
	missing := false
	for _, field := range RequiredMetadataFields {
		if _, ok := fields[field]; !ok {
			missing = true
			r.issue(services.ErrValidation, "metadata.json missing field: "+field, "Re-run intake for this ticket to regenerate metadata.json")
		}
	}
	if !missing {
		if err := metadata.ValidateDocument(data); err != nil {
			r.issue(services.ErrValidation, "metadata.json does not match the ticket schema: "+err.Error(), "Correct the invalid field or re-run intake")
		}
	}
	if id, ok := fields["ticket_id"].(string); ok {
		r.TicketID = id
	}
	if score, ok := fields["confidence"].(float64); ok {
		r.Confidence = &score
		if confidence.NeedsReview(score, confidence.ReviewThreshold) {
			r.warn(fmt.Sprintf("low intake confidence: %.2f (expected >= %.2f)", score, confidence.ReviewThreshold),
				"Review the extracted fields against the original ticket file")
		}
	}
}

// finish collects unique recommendations in finding order.
func (r *Report) finish() {
	seen := map[string]bool{}
	add := func(rec string) {
		if rec == "" || seen[rec] {
			return
		}
		seen[rec] = true
		r.Recommendations = append(r.Recommendations, rec)
	}
	for _, f := range r.Issues {
		add(f.Recommendation)
	}
	for _, f := range r.Warnings {
		add(f.Recommendation)
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
