package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ticketdesk/internal/confidence"
	"ticketdesk/internal/config"
	"ticketdesk/internal/extraction"
	"ticketdesk/internal/extraction/ocr"
	"ticketdesk/internal/extraction/vision"
	"ticketdesk/internal/fileutil"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/metadata"
	"ticketdesk/internal/notifications"
	"ticketdesk/internal/router"
	"ticketdesk/internal/services"
)

// Recorder is the ledger surface the pipeline writes to.
type Recorder interface {
	RecordIntake(ctx context.Context, entry ledger.Intake) (int64, error)
}

// Pipeline processes ticket files. It is safe to reuse across files but holds
// no per-file state.
type Pipeline struct {
	cfg      *config.Config
	engines  map[extraction.Method]extraction.Engine
	recorder Recorder
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithEngine replaces the engine bound to engine.Method().
func WithEngine(engine extraction.Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.engines[engine.Method()] = engine
		}
	}
}

// WithRecorder attaches a ledger.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithNotifier attaches a notification service.
func WithNotifier(n notifications.Service) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a pipeline with the OCR and vision engines configured from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	logger = logging.NewComponentLogger(logger, "intake")
	p := &Pipeline{
		cfg: cfg,
		engines: map[extraction.Method]extraction.Engine{
			extraction.MethodTextRecognition: ocr.New(ocr.OptionsFromConfig(cfg), ocr.NewPageCache(cfg.OCRCacheDir()), logger),
			extraction.MethodVisionAnalysis:  vision.New(vision.OptionsFromConfig(cfg), logger),
		},
		notifier: notifications.NewService(cfg),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one intake. It never panics; every failure is reported in the
// returned Outcome.
func (p *Pipeline) Process(ctx context.Context, path string) Outcome {
	started := p.now()
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithFile(ctx, filepath.Base(path))
	ctx = services.WithStage(ctx, "intake")
	logger := logging.WithContext(ctx, p.logger)

	route := router.Classify(path)
	outcome := Outcome{RequestID: requestID, SourcePath: path, FileType: route.Category}

	if !route.Supported() {
		err := services.Wrap(services.ErrUnsupportedFileType, "intake", "route", router.UnsupportedMessage(route.Extension), nil)
		outcome.Status = StatusError
		outcome.Message = router.UnsupportedMessage(route.Extension)
		outcome.SupportedTypes = router.SupportedTypes()
		outcome.ErrorKind = services.Kind(err)
		outcome.Err = err
		logging.WarnWithContext(logger, "unsupported file type", "intake_unsupported",
			logging.String("extension", route.Extension),
			logging.String(logging.FieldImpact, "file left in place, no ticket created"),
			logging.String(logging.FieldErrorHint, "convert the file to a supported document or audio/video format"),
		)
		p.record(ctx, outcome, ledger.StatusUnsupported, started)
		return outcome
	}

	if _, err := os.Stat(path); err != nil {
		err = services.Wrap(services.ErrNotFound, "intake", "open", "source file not found", err)
		outcome.Status = StatusError
		outcome.Message = err.Error()
		outcome.ErrorKind = services.Kind(err)
		outcome.Err = err
		logging.ErrorWithContext(logger, "intake source missing", "intake_source_missing",
			logging.Error(err),
			logging.String(logging.FieldImpact, "nothing to process"),
			logging.String(logging.FieldErrorHint, "check the path passed to intake"),
		)
		p.record(ctx, outcome, ledger.StatusFailed, started)
		return outcome
	}

	logger.Info("intake started", logging.String("category", string(route.Category)), logging.String("method", string(route.Method)))
	ticket, details, err := p.safeRun(ctx, path, route)
	if err != nil {
		return p.fail(ctx, logger, outcome, path, err, started)
	}

	outcome.Status = StatusSuccess
	outcome.Ticket = &ticket
	outcome.TicketID = ticket.TicketID
	outcome.TicketFolder = details.folder
	outcome.MetadataFile = details.metadataFile
	outcome.AnalysisFile = details.analysisFile
	outcome.ProcessedFile = filepath.Join(details.folder, ticket.ProcessedFile)
	outcome.Confidence = ticket.Confidence
	outcome.ConfidenceLabel = confidence.Label(ticket.Confidence)
	outcome.NeedsReview = confidence.NeedsReview(ticket.Confidence, p.cfg.Intake.ReviewThreshold)
	outcome.ExtractionMethod = ticket.ExtractionMethod
	outcome.Message = fmt.Sprintf("Ticket %s processed into %s", ticket.TicketID, details.folder)

	if p.cfg.Intake.RemoveOriginal {
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove original", "intake_remove_original_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the watcher will not re-process it, but it remains in incoming"),
				logging.String(logging.FieldErrorHint, "check permissions on the incoming directory"),
			)
		}
	}

	logger.Info("intake complete",
		logging.String(logging.FieldTicketID, ticket.TicketID),
		logging.String("ticket_folder", details.folder),
		logging.Confidence(ticket.Confidence),
		logging.Bool("needs_review", outcome.NeedsReview),
	)
	p.record(ctx, outcome, ledger.StatusSuccess, started)
	p.publish(ctx, logger, notifications.EventIntakeCompleted, notifications.Payload{
		"ticketID":      ticket.TicketID,
		"company":       ticket.Company,
		"method":        string(ticket.ExtractionMethod),
		"confidence":    ticket.Confidence,
		"lowConfidence": outcome.NeedsReview,
	})
	return outcome
}

type artifacts struct {
	folder       string
	metadataFile string
	analysisFile string
}

// safeRun converts a panic anywhere in extraction or writing into an
// EngineFailure.
func (p *Pipeline) safeRun(ctx context.Context, path string, route router.Route) (ticket metadata.Ticket, out artifacts, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrEngineFailure, "intake", "panic", fmt.Sprint(r), nil)
		}
	}()
	return p.run(ctx, path, route)
}

func (p *Pipeline) run(ctx context.Context, path string, route router.Route) (metadata.Ticket, artifacts, error) {
	engine, ok := p.engines[route.Method]
	if !ok || engine == nil {
		return metadata.Ticket{}, artifacts{}, services.Wrap(services.ErrEngineFailure, "intake", "route", "no engine bound to "+string(route.Method), nil)
	}

	result := engine.Extract(services.WithStage(ctx, string(route.Method)), path)
	if !result.Success {
		err := result.Err
		if err == nil {
			err = services.Wrap(services.ErrEngineFailure, "intake", "extract", "engine reported failure without detail", nil)
		}
		return metadata.Ticket{}, artifacts{}, err
	}

	var parsed metadata.Ticket
	if route.Method == extraction.MethodVisionAnalysis {
		parsed = metadata.ParseStructured(result.Text())
	} else {
		parsed = metadata.Parse(result.Text())
	}

	now := p.now()
	ticket := parsed.WithProvenance(metadata.Provenance{
		Method:        route.Method,
		Confidence:    confidence.Finalize(result.Confidence),
		Partial:       result.Partial,
		OriginalFile:  filepath.Base(path),
		ProcessedFile: metadata.ProcessedFilename(parsed, filepath.Ext(path), now),
		Timestamp:     now,
	})

	details := AnalysisDetails{
		Pages:        result.Pages,
		Characters:   utf8.RuneCountInString(result.Text()),
		Preprocessed: p.cfg.OCR.Preprocess,
	}
	out, err := p.write(path, ticket, details, now)
	if err != nil {
		return metadata.Ticket{}, artifacts{}, err
	}
	return ticket, out, nil
}

const (
	metadataFileName = "metadata.json"
	analysisFileName = "preliminary_analysis.md"
)

// write stages the three artifacts in a scratch directory under the
// processing dir and installs them only once all of them are written, so a
// failed attempt leaves no ticket folder behind. An existing folder for the
// same ticket id is reused and its files overwritten.
func (p *Pipeline) write(source string, ticket metadata.Ticket, details AnalysisDetails, now time.Time) (artifacts, error) {
	if err := ticket.Validate(); err != nil {
		return artifacts{}, services.Wrap(services.ErrValidation, "intake", "validate metadata", "", err)
	}
	folderName := metadata.TicketFolderName(ticket.TicketID)
	folder := filepath.Join(p.cfg.Paths.ProcessingDir, folderName)
	if err := os.MkdirAll(p.cfg.Paths.ProcessingDir, 0o755); err != nil {
		return artifacts{}, fmt.Errorf("create processing dir: %w", err)
	}
	staging, err := os.MkdirTemp(p.cfg.Paths.ProcessingDir, ".staging-"+folderName+"-")
	if err != nil {
		return artifacts{}, fmt.Errorf("create staging folder: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return artifacts{}, fmt.Errorf("chmod staging folder: %w", err)
	}

	if err := fileutil.CopyPreserve(source, filepath.Join(staging, ticket.ProcessedFile)); err != nil {
		return artifacts{}, fmt.Errorf("copy source into ticket folder: %w", err)
	}
	if err := fileutil.WriteJSON(filepath.Join(staging, metadataFileName), ticket); err != nil {
		return artifacts{}, fmt.Errorf("write metadata: %w", err)
	}
	analysis := RenderAnalysis(ticket, details, now)
	if err := fileutil.WriteFileAtomic(filepath.Join(staging, analysisFileName), []byte(analysis), 0o644); err != nil {
		return artifacts{}, fmt.Errorf("write analysis: %w", err)
	}

	if err := install(staging, folder, []string{ticket.ProcessedFile, metadataFileName, analysisFileName}); err != nil {
		return artifacts{}, fmt.Errorf("install ticket folder: %w", err)
	}
	return artifacts{
		folder:       folder,
		metadataFile: filepath.Join(folder, metadataFileName),
		analysisFile: filepath.Join(folder, analysisFileName),
	}, nil
}

// install moves staged artifacts into folder. A missing folder is created by
// renaming the staging directory itself; an existing one must accept every
// name before any file is moved.
func install(staging, folder string, names []string) error {
	if _, err := os.Stat(folder); errors.Is(err, fs.ErrNotExist) {
		return os.Rename(staging, folder)
	} else if err != nil {
		return err
	}
	for _, name := range names {
		if info, err := os.Lstat(filepath.Join(folder, name)); err == nil && info.IsDir() {
			return fmt.Errorf("%s exists as a directory in %s", name, folder)
		}
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(folder, name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, outcome Outcome, path string, cause error, started time.Time) Outcome {
	outcome.Status = StatusError
	outcome.Message = cause.Error()
	outcome.ErrorKind = services.Kind(cause)
	outcome.Err = cause

	failedPath, errorFile, err := Quarantine(p.cfg.Paths.FailedDir, path, cause, p.now())
	outcome.FailedPath = failedPath
	outcome.ErrorFile = errorFile
	if err != nil {
		logging.WarnWithContext(logger, "quarantine incomplete", "intake_quarantine_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the failed file may be missing from the quarantine directory"),
			logging.String(logging.FieldErrorHint, "check permissions on "+p.cfg.Paths.FailedDir),
		)
	}

	logging.ErrorWithContext(logger, "intake failed", "intake_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, outcome.ErrorKind),
		logging.String("failed_path", failedPath),
		logging.String(logging.FieldImpact, "no ticket folder created"),
		logging.String(logging.FieldErrorHint, hintFor(cause)),
	)
	p.record(ctx, outcome, ledger.StatusFailed, started)
	p.publish(ctx, logger, notifications.EventIntakeFailed, notifications.Payload{
		"file":       filepath.Base(path),
		"kind":       outcome.ErrorKind,
		"error":      cause,
		"failedPath": failedPath,
	})
	return outcome
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrRenderFailure):
		return "verify pdftoppm is installed and the PDF opens in a viewer"
	case errors.Is(err, services.ErrValidation):
		return "inspect the extracted fields; the metadata failed schema validation"
	case errors.Is(err, services.ErrEngineFailure):
		return "run ticketdesk status to check OCR binaries and vision credentials"
	default:
		return "inspect the error report in the quarantine directory"
	}
}

func (p *Pipeline) record(ctx context.Context, outcome Outcome, status ledger.Status, started time.Time) {
	if p.recorder == nil {
		return
	}
	entry := ledger.Intake{
		RequestID:        outcome.RequestID,
		SourcePath:       outcome.SourcePath,
		Status:           status,
		ErrorKind:        outcome.ErrorKind,
		TicketID:         outcome.TicketID,
		ExtractionMethod: string(outcome.ExtractionMethod),
		TicketFolder:     outcome.TicketFolder,
		QuarantinePath:   outcome.FailedPath,
		StartedAt:        started,
		FinishedAt:       p.now(),
	}
	if outcome.Err != nil {
		entry.ErrorMessage = outcome.Err.Error()
	}
	if status == ledger.StatusSuccess {
		value := outcome.Confidence
		entry.Confidence = &value
	}
	if _, err := p.recorder.RecordIntake(context.WithoutCancel(ctx), entry); err != nil {
		p.logger.Warn("ledger write failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "ledger_write_failed"),
			logging.String(logging.FieldImpact, "intake missing from history"),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		)
	}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "operators were not alerted"),
			logging.String(logging.FieldErrorHint, "verify notifications.ntfy_topic"),
		)
	}
}
