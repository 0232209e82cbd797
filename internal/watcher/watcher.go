package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"ticketdesk/internal/config"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/notifications"
	"ticketdesk/internal/router"
	"ticketdesk/internal/services"
)

// Recorder is the ledger surface the watcher writes to.
type Recorder interface {
	RecordIntake(ctx context.Context, entry ledger.Intake) (int64, error)
}

// Watcher dispatches new files in the incoming directory.
type Watcher struct {
	dir        string
	failedDir  string
	poll       time.Duration
	stableWait time.Duration
	worker     Worker
	metrics    *Metrics
	recorder   Recorder
	notifier   notifications.Service
	logger     *slog.Logger
	fsw        *fsnotify.Watcher

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithWorker replaces the process worker.
func WithWorker(w Worker) Option {
	return func(watch *Watcher) {
		if w != nil {
			watch.worker = w
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// WithRecorder attaches a ledger.
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(w *Watcher) {
		if n != nil {
			w.notifier = n
		}
	}
}

// New builds a watcher for cfg.Paths.IncomingDir. configPath is forwarded to
// worker processes so they load the same configuration.
func New(cfg *config.Config, configPath string, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:        cfg.Paths.IncomingDir,
		failedDir:  cfg.Paths.FailedDir,
		poll:       time.Duration(cfg.Watcher.StablePollMillis) * time.Millisecond,
		stableWait: time.Duration(cfg.Watcher.StableTimeoutSeconds) * time.Second,
		worker: ProcessWorker{
			Binary:     cfg.Watcher.WorkerBinary,
			ConfigPath: configPath,
			Timeout:    time.Duration(cfg.Watcher.WorkerTimeoutSeconds) * time.Second,
		},
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "watcher"),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open registers the incoming directory with fsnotify. Create events that
// arrive between Open and Run are queued by the kernel and dispatched once Run
// starts, so callers can report readiness as soon as Open returns.
func (w *Watcher) Open() error {
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return services.Wrap(services.ErrConfiguration, "watcher", "watch incoming", "cannot watch "+w.dir, err)
	}
	w.fsw = fsw
	w.logger.Info("watching incoming directory",
		logging.String("dir", w.dir),
		logging.Duration("stable_poll", w.poll),
		logging.Duration("stable_timeout", w.stableWait),
	)
	return nil
}

// Close releases the fsnotify watcher. Run calls it on return; callers only
// need it when Open succeeded but Run never started.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

// Run dispatches events until ctx is canceled, then waits for in-flight
// dispatches to wind down. It opens the watcher itself when Open was not
// called. Workers observe the same cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Open(); err != nil {
		return err
	}
	fsw := w.fsw
	defer w.Close()
	defer w.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", logging.Int("inflight", w.InFlight()))
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				w.Handle(ctx, path)
			}(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some create events may have been missed"),
				logging.String(logging.FieldErrorHint, "drop the file into incoming again"),
			)
		}
	}
}

// Qualifies reports whether a create event for path should be dispatched:
// a regular file with a supported extension, outside the quarantine.
func (w *Watcher) Qualifies(path string) bool {
	if !router.IsSupported(path) {
		return false
	}
	if w.failedDir != "" {
		if rel, err := filepath.Rel(w.failedDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return false
		}
	}
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

// InFlight returns the number of paths currently being handled.
func (w *Watcher) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight)
}

func (w *Watcher) acquire(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[path]; busy {
		return false
	}
	w.inflight[path] = struct{}{}
	w.metrics.setInflight(len(w.inflight))
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, path)
	w.metrics.setInflight(len(w.inflight))
}

// Handle processes one create event. It returns the dispatch outcome, or ""
// when the path does not qualify.
func (w *Watcher) Handle(ctx context.Context, path string) string {
	if !w.Qualifies(path) {
		if !router.IsSupported(path) {
			w.logger.Debug("ignoring unsupported file", logging.String("file", filepath.Base(path)))
		}
		return ""
	}
	dispatchID := uuid.NewString()
	ctx = services.WithRequestID(ctx, dispatchID)
	ctx = services.WithFile(ctx, filepath.Base(path))
	ctx = services.WithStage(ctx, "watcher")
	logger := logging.WithContext(ctx, w.logger)

	if !w.acquire(path) {
		logger.Info("already in flight, skipping duplicate event")
		w.metrics.observeDispatch(OutcomeSkipped)
		return OutcomeSkipped
	}
	defer w.release(path)

	size, err := WaitStable(ctx, path, w.poll, w.stableWait)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCanceled
		}
		logging.ErrorWithContext(logger, "file never stabilized", "watcher_unstable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file was not processed"),
			logging.String(logging.FieldErrorHint, "ensure the copy into incoming completes, then run ticketdesk intake by hand"),
		)
		w.metrics.observeDispatch(OutcomeUnstable)
		return OutcomeUnstable
	}

	logger.Info("dispatching intake worker", logging.Int64("size_bytes", size))
	started := time.Now()
	result := w.worker.Run(ctx, path)
	w.metrics.observeWorker(result.Duration)
	w.metrics.observeDispatch(result.Outcome)

	switch result.Outcome {
	case OutcomeSuccess:
		attrs := []logging.Attr{logging.Duration("duration", result.Duration)}
		if result.Report != nil {
			attrs = append(attrs, logging.String(logging.FieldTicketID, result.Report.TicketID))
		}
		logger.Info("intake worker succeeded", logging.Args(attrs...)...)
	case OutcomeTimeout:
		logging.ErrorWithContext(logger, "intake worker timed out", "watcher_worker_timeout",
			logging.Duration("duration", result.Duration),
			logging.String(logging.FieldImpact, "worker process group killed, file left in incoming"),
			logging.String(logging.FieldErrorHint, "raise watcher.worker_timeout_seconds or run intake by hand"),
		)
		w.record(ctx, path, dispatchID, ledger.StatusTimeout, services.Wrap(services.ErrTimeout, "watcher", "worker", "", result.Err), started)
		w.publish(ctx, logger, notifications.EventWorkerTimeout, notifications.Payload{
			"file":    filepath.Base(path),
			"timeout": result.Duration.Round(time.Second).String(),
		})
	case OutcomeFailed:
		attrs := []logging.Attr{
			logging.Int("exit_code", result.ExitCode),
			logging.String(logging.FieldImpact, "ticket not created"),
			logging.String(logging.FieldErrorHint, "see the quarantine error report or the worker stderr"),
		}
		if result.Report != nil {
			attrs = append(attrs, logging.String(logging.FieldErrorKind, result.Report.ErrorKind), logging.String("message", result.Report.Message))
		} else {
			attrs = append(attrs, logging.String("stderr", result.Stderr))
		}
		logging.ErrorWithContext(logger, "intake worker failed", "watcher_worker_failed", attrs...)
		if result.Report == nil {
			cause := result.Err
			if cause == nil {
				cause = errors.New("worker produced no report")
			}
			w.record(ctx, path, dispatchID, ledger.StatusFailed, services.Wrap(services.ErrExternalTool, "watcher", "worker", result.Stderr, cause), started)
		}
	case OutcomeCanceled:
		logger.Info("intake worker canceled by shutdown")
	}
	return result.Outcome
}

func (w *Watcher) record(ctx context.Context, path, dispatchID string, status ledger.Status, cause error, started time.Time) {
	if w.recorder == nil {
		return
	}
	entry := ledger.Intake{
		RequestID:  dispatchID,
		SourcePath: path,
		Status:     status,
		ErrorKind:  services.Kind(cause),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}
	if _, err := w.recorder.RecordIntake(context.WithoutCancel(ctx), entry); err != nil {
		w.logger.Warn("ledger write failed", logging.Error(err), logging.String(logging.FieldEventType, "ledger_write_failed"))
	}
}

func (w *Watcher) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := w.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logger.Warn("notification failed", logging.Error(err), logging.String(logging.FieldEventType, "notification_failed"))
	}
}
