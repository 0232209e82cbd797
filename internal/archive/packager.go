package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ticketdesk/internal/config"
	"ticketdesk/internal/fileutil"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/metadata"
	"ticketdesk/internal/notifications"
	"ticketdesk/internal/services"
)

// Subdirectories every resolution package carries.
var Subdirectories = []string{"original_files", "analysis", "investigation", "resolution", "metadata"}

// mediaOrder is the preference order for the single original file copied from
// the intake folder.
var mediaOrder = []string{".pdf", ".png", ".jpg", ".jpeg", ".mp3", ".mp4", ".wav"}

// Artifact names inside a package.
const (
	SummaryFile        = "TICKET_SUMMARY.md"
	IntakeMetadataFile = "metadata.json"
	AnalysisFile       = "preliminary_analysis.md"
	TicketMetadataFile = "ticket_metadata.json"
	TimelineFile       = "timeline.json"
)

// ResolutionType classifies how a ticket was closed.
type ResolutionType string

const (
	ResolutionFixed      ResolutionType = "fixed"
	ResolutionWorkaround ResolutionType = "workaround"
	ResolutionDuplicate  ResolutionType = "duplicate"
	ResolutionEscalated  ResolutionType = "escalated"
	ResolutionNoIssue    ResolutionType = "no-issue"
)

// ResolutionTypes lists the accepted values in display order.
var ResolutionTypes = []ResolutionType{ResolutionFixed, ResolutionWorkaround, ResolutionDuplicate, ResolutionEscalated, ResolutionNoIssue}

// ParseResolutionType accepts any case; empty means fixed.
func ParseResolutionType(value string) (ResolutionType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ResolutionFixed, nil
	}
	for _, candidate := range ResolutionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "archive", "parse resolution type",
		fmt.Sprintf("unknown resolution type %q (want one of fixed, workaround, duplicate, escalated, no-issue)", value), nil)
}

// Request identifies the ticket to archive.
type Request struct {
	TicketID       string
	CustomerID     string
	Company        string
	TradingPartner string
	Resolution     ResolutionType
	Investigator   string
}

// Result describes a finished package.
type Result struct {
	Folder         string   `json:"folder"`
	IntakeFolder   string   `json:"intake_folder,omitempty"`
	Archived       []string `json:"archived"`
	Warnings       []string `json:"warnings,omitempty"`
	HistoryFile    string   `json:"history_file,omitempty"`
	HistoryUpdated bool     `json:"history_updated"`
	FileCount      int      `json:"file_count"`
}

// TicketMetadata is metadata/ticket_metadata.json.
type TicketMetadata struct {
	TicketID         string         `json:"ticket_id"`
	CustomerID       string         `json:"customer_id"`
	CompanyName      string         `json:"company_name"`
	TradingPartner   string         `json:"trading_partner"`
	ResolutionType   ResolutionType `json:"resolution_type"`
	Investigator     string         `json:"investigator"`
	ArchivedAt       string         `json:"archived_at"`
	IntakeConfidence float64        `json:"intake_confidence"`
	ExtractionMethod string         `json:"extraction_method"`
}

// Recorder is the ledger surface the packager writes to.
type Recorder interface {
	RecordArchive(ctx context.Context, entry ledger.Archive) (int64, error)
}

// Packager builds resolution packages.
type Packager struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder Recorder
	notifier notifications.Service
	now      func() time.Time
}

// Option customizes a Packager.
type Option func(*Packager)

// WithRecorder attaches a ledger.
func WithRecorder(r Recorder) Option {
	return func(p *Packager) { p.recorder = r }
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(p *Packager) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a packager rooted at cfg.Paths.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Packager {
	p := &Packager{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "archive"),
		notifier: notifications.NewService(cfg),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// intakeSnapshot is what the packager knows about the ticket's intake. All
// fields are empty when no intake folder was found.
type intakeSnapshot struct {
	Folder     string
	Ticket     metadata.Ticket
	Found      bool
	Timestamp  string
	Confidence float64
	Method     string
	IssueTitle string
}

// Package creates or refreshes the resolution package for req. Re-running it
// for the same ticket overwrites generated files and keeps anything an analyst
// added to investigation/ or resolution/.
func (p *Packager) Package(ctx context.Context, req Request) (Result, error) {
	req, err := p.normalize(req)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithTicketID(ctx, req.TicketID)
	ctx = services.WithStage(ctx, "archive")
	logger := logging.WithContext(ctx, p.logger)
	now := p.now()

	folder := filepath.Join(p.cfg.Paths.ResolutionDir, metadata.ArchiveFolderName(req.CustomerID, req.Company))
	for _, sub := range Subdirectories {
		if err := os.MkdirAll(filepath.Join(folder, sub), 0o755); err != nil {
			return Result{}, services.Wrap(services.ErrArchiveIncomplete, "archive", "create structure",
				"failed to create "+sub+"/", err)
		}
	}
	logger.Info("resolution structure ready",
		logging.String("folder", folder),
		logging.String("resolution_type", string(req.Resolution)),
	)
	result := Result{Folder: folder}

	intake, err := p.archiveIntake(req.TicketID, folder, &result)
	if err != nil {
		return result, err
	}
	if !intake.Found {
		logging.WarnWithContext(logger, "intake artifacts not found", "archive_intake_missing",
			logging.String("processing_dir", p.cfg.Paths.ProcessingDir),
			logging.String(logging.FieldImpact, "package built without intake metadata"),
			logging.String(logging.FieldErrorHint, "run ticketdesk intake first, or copy artifacts into analysis/ by hand"),
		)
	}
	if req.TradingPartner == "" {
		req.TradingPartner = orDefault(strings.TrimSpace(intake.Ticket.TradingPartner), metadata.DefaultName)
	}
	for _, warning := range result.Warnings {
		logger.Warn("archive warning", logging.String("detail", warning), logging.String(logging.FieldEventType, "archive_warning"))
	}

	if err := p.writeSummary(folder, req, intake, now); err != nil {
		return result, err
	}
	result.Archived = append(result.Archived, SummaryFile)

	ticketMeta := TicketMetadata{
		TicketID:         req.TicketID,
		CustomerID:       req.CustomerID,
		CompanyName:      req.Company,
		TradingPartner:   req.TradingPartner,
		ResolutionType:   req.Resolution,
		Investigator:     req.Investigator,
		ArchivedAt:       now.Format(time.RFC3339),
		IntakeConfidence: intake.Confidence,
		ExtractionMethod: orUnknown(intake.Method),
	}
	if err := fileutil.WriteJSON(filepath.Join(folder, "metadata", TicketMetadataFile), ticketMeta); err != nil {
		return result, fmt.Errorf("write ticket metadata: %w", err)
	}
	if err := fileutil.WriteJSON(filepath.Join(folder, "metadata", TimelineFile), buildTimeline(req.TicketID, intake, now)); err != nil {
		return result, fmt.Errorf("write timeline: %w", err)
	}
	result.Archived = append(result.Archived, filepath.Join("metadata", TicketMetadataFile), filepath.Join("metadata", TimelineFile))

	historyPath, updated, err := AppendHistory(p.cfg.Paths.CustomersDir, req, intake, now)
	result.HistoryFile = historyPath
	result.HistoryUpdated = updated
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "customer history update failed", "archive_history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "customer history is missing this ticket"),
			logging.String(logging.FieldErrorHint, "check permissions on "+p.cfg.Paths.CustomersDir),
		)
	case !updated:
		logger.Info("customer history not found, skipping update", logging.String("history_file", historyPath))
	}

	if files, _, err := fileutil.DirUsage(folder); err == nil {
		result.FileCount = files
	}
	logger.Info("archive complete",
		logging.String("folder", folder),
		logging.Int("file_count", result.FileCount),
		logging.Bool("history_updated", updated),
	)

	if p.recorder != nil {
		if _, err := p.recorder.RecordArchive(context.WithoutCancel(ctx), ledger.Archive{
			TicketID:       req.TicketID,
			CustomerID:     req.CustomerID,
			Company:        req.Company,
			ResolutionType: string(req.Resolution),
			Folder:         folder,
			ArchivedAt:     now,
		}); err != nil {
			logger.Warn("ledger write failed", logging.Error(err), logging.String(logging.FieldEventType, "ledger_write_failed"))
		}
	}
	if err := p.notifier.Publish(context.WithoutCancel(ctx), notifications.EventArchiveCompleted, notifications.Payload{
		"ticketID":       req.TicketID,
		"resolutionType": string(req.Resolution),
		"folder":         filepath.Base(folder),
	}); err != nil {
		logger.Warn("archive notification failed", logging.Error(err), logging.String(logging.FieldEventType, "notification_failed"))
	}
	return result, nil
}

func (p *Packager) normalize(req Request) (Request, error) {
	req.TicketID = strings.TrimSpace(req.TicketID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Company = strings.TrimSpace(req.Company)
	if req.TicketID == "" || req.CustomerID == "" || req.Company == "" {
		return req, services.Wrap(services.ErrValidation, "archive", "validate request",
			"ticket id, customer id, and company name are required", nil)
	}
	req.TradingPartner = strings.TrimSpace(req.TradingPartner)
	resolution, err := ParseResolutionType(string(req.Resolution))
	if err != nil {
		return req, err
	}
	req.Resolution = resolution
	req.Investigator = strings.TrimSpace(req.Investigator)
	if req.Investigator == "" {
		req.Investigator = p.cfg.Archive.DefaultInvestigator
	}
	return req, nil
}

// archiveIntake copies intake artifacts into the package. Missing pieces are
// recorded as warnings; unreadable metadata is a ParseFailure.
func (p *Packager) archiveIntake(ticketID, folder string, result *Result) (intakeSnapshot, error) {
	source, ok := FindIntakeFolder(p.cfg.Paths.ProcessingDir, ticketID)
	if !ok {
		result.Warnings = append(result.Warnings, "intake folder not found for ticket "+ticketID)
		return intakeSnapshot{}, nil
	}
	snap := intakeSnapshot{Folder: source, Found: true}
	result.IntakeFolder = source

	metaPath := filepath.Join(source, IntakeMetadataFile)
	data, err := os.ReadFile(metaPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Warnings = append(result.Warnings, IntakeMetadataFile+" not found in "+filepath.Base(source))
	case err != nil:
		return snap, fmt.Errorf("read intake metadata: %w", err)
	default:
		ticket, err := metadata.Load(data)
		if err != nil {
			return snap, services.Wrap(services.ErrParseFailure, "archive", "decode intake metadata", metaPath, err)
		}
		snap.Ticket = ticket
		snap.Timestamp = ticket.Timestamp
		snap.Confidence = ticket.Confidence
		snap.Method = string(ticket.ExtractionMethod)
		snap.IssueTitle = ticket.IssueTitle
		if err := fileutil.CopyPreserve(metaPath, filepath.Join(folder, "analysis", IntakeMetadataFile)); err != nil {
			return snap, fmt.Errorf("archive intake metadata: %w", err)
		}
		result.Archived = append(result.Archived, filepath.Join("analysis", IntakeMetadataFile))
	}

	analysisPath := filepath.Join(source, AnalysisFile)
	if _, err := os.Stat(analysisPath); err != nil {
		result.Warnings = append(result.Warnings, AnalysisFile+" not found in "+filepath.Base(source))
	} else if err := fileutil.CopyPreserve(analysisPath, filepath.Join(folder, "analysis", AnalysisFile)); err != nil {
		return snap, fmt.Errorf("archive analysis: %w", err)
	} else {
		result.Archived = append(result.Archived, filepath.Join("analysis", AnalysisFile))
	}

	if media, ok := firstMedia(source); ok {
		name := filepath.Base(media)
		if err := fileutil.CopyPreserve(media, filepath.Join(folder, "original_files", name)); err != nil {
			return snap, fmt.Errorf("archive original file: %w", err)
		}
		result.Archived = append(result.Archived, filepath.Join("original_files", name))
	} else {
		result.Warnings = append(result.Warnings, "no original media file in "+filepath.Base(source))
	}
	return snap, nil
}

// FindIntakeFolder returns the first directory under processingDir whose name
// contains ticketID, in lexical order.
func FindIntakeFolder(processingDir, ticketID string) (string, bool) {
	entries, err := os.ReadDir(processingDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.Contains(entry.Name(), ticketID) {
			return filepath.Join(processingDir, entry.Name()), true
		}
	}
	return "", false
}

func firstMedia(dir string) (string, bool) {
	names := listFiles(dir)
	for _, ext := range mediaOrder {
		var matches []string
		for _, name := range names {
			if strings.EqualFold(filepath.Ext(name), ext) {
				matches = append(matches, name)
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return filepath.Join(dir, matches[0]), true
		}
	}
	return "", false
}

func (p *Packager) writeSummary(folder string, req Request, intake intakeSnapshot, now time.Time) error {
	target := filepath.Join(folder, SummaryFile)
	template, ok, err := loadTemplate(p.cfg.Archive.SummaryTemplate)
	if err != nil {
		return err
	}
	var body string
	if ok {
		body = RenderSummary(template, summaryValues(folder, req, intake, now))
	} else {
		p.logger.Info("summary template not found, writing minimal summary",
			logging.String("template", p.cfg.Archive.SummaryTemplate))
		body = minimalSummary(req, now)
	}
	if err := fileutil.WriteFileAtomic(target, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func summaryValues(folder string, req Request, intake intakeSnapshot, now time.Time) map[string]string {
	originals := listFiles(filepath.Join(folder, "original_files"))
	total, _, _ := fileutil.DirUsage(folder)
	ticket := intake.Ticket
	original := "N/A"
	if len(originals) > 0 {
		original = originals[0]
	}
	received := intake.Timestamp
	if received == "" {
		received = now.Format(time.RFC3339)
	}
	return map[string]string{
		"ticket_id":                req.TicketID,
		"timestamp":                now.Format("2006-01-02 15:04:05"),
		"customer_id":              req.CustomerID,
		"company_name":             req.Company,
		"trading_partner":          req.TradingPartner,
		"transaction_type":         orUnknown(ticket.TransactionType),
		"severity":                 orUnknown(string(ticket.Severity)),
		"issue_title":              orDefault(ticket.IssueTitle, "See Phase 0 analysis"),
		"root_cause":               orDefault(ticket.RootCause, "See investigation report"),
		"recommended_actions":      numberedList(ticket.RecommendedActions),
		"extraction_method":        orUnknown(intake.Method),
		"confidence_score":         fmt.Sprintf("%.2f", intake.Confidence),
		"intake_timestamp":         received,
		"original_filename":        original,
		"investigator_name":        req.Investigator,
		"resolution_type":          resolutionLabel(req.Resolution),
		"resolution_date":          now.Format("2006-01-02"),
		"total_file_count":         fmt.Sprint(total),
		"original_files_list":      bulletList(originals),
		"analysis_files_list":      bulletList(listFiles(filepath.Join(folder, "analysis"))),
		"investigation_files_list": bulletList(listFiles(filepath.Join(folder, "investigation"))),
		"resolution_files_list":    bulletList(listFiles(filepath.Join(folder, "resolution"))),
		"archived_timestamp":       now.Format(time.RFC3339),
		"last_updated_timestamp":   now.Format("2006-01-02 15:04:05"),
	}
}

func orUnknown(value string) string {
	return orDefault(value, "Unknown")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// decodeTicketMetadata reads a package's ticket_metadata.json.
func decodeTicketMetadata(path string) (TicketMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TicketMetadata{}, err
	}
	var meta TicketMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return TicketMetadata{}, services.Wrap(services.ErrParseFailure, "archive", "decode ticket metadata", path, err)
	}
	return meta, nil
}
