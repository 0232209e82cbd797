package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ticketdesk/internal/config"
	"ticketdesk/internal/deps"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/preflight"
	"ticketdesk/internal/services"
	"ticketdesk/internal/watcher"
)

// Daemon runs the incoming-directory watcher under a single-instance lock and
// optionally serves the status API.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	watcher  *watcher.Watcher
	registry *prometheus.Registry
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}
	runErr  error
	started time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    time.Time          `json:"started_at,omitzero"`
	LedgerPath   string             `json:"ledger_path"`
	LockFilePath string             `json:"lock_file_path"`
	IncomingDir  string             `json:"incoming_dir"`
	InFlight     int                `json:"in_flight"`
	Stats        ledger.Stats       `json:"stats"`
	SuccessRate  float64            `json:"success_rate"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

// Option customizes the daemon.
type Option func(*options)

type options struct {
	watcherOpts []watcher.Option
}

// WithWatcherOptions forwards options to the underlying watcher.
func WithWatcherOptions(opts ...watcher.Option) Option {
	return func(o *options) { o.watcherOpts = append(o.watcherOpts, opts...) }
}

// New constructs a daemon. configPath is forwarded to intake workers.
func New(cfg *config.Config, configPath string, store *ledger.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and ledger store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	watchOpts := append([]watcher.Option{
		watcher.WithMetrics(watcher.NewMetrics(registry)),
		watcher.WithRecorder(store),
	}, o.watcherOpts...)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		watcher:  watcher.New(cfg, configPath, logger, watchOpts...),
		registry: registry,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock and registers the incoming directory before
// launching the watcher loop and status API. Files created after Start returns
// are dispatched.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(d.cfg.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "daemon", "acquire lock",
			"another ticketdesk watcher is already running", nil)
	}

	for _, check := range preflight.RunAll(ctx, d.cfg) {
		if check.Passed {
			continue
		}
		if check.Optional {
			d.logger.Info("optional check not satisfied", logging.String("check", check.Name), logging.String("detail", check.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "daemon.preflight",
			logging.String("check", check.Name),
			logging.String(logging.FieldErrorHint, check.Detail),
		)
	}

	if err := d.watcher.Open(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.watcher.Close()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.done = make(chan struct{})
	d.runErr = nil
	d.started = time.Now()
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(d.done)
		if err := d.watcher.Run(runCtx); err != nil {
			d.runErr = err
			logging.ErrorWithContext(d.logger, "watcher stopped", "daemon.watcher_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
			)
		}
	}()

	d.logger.Info("ticketdesk daemon started",
		logging.String("lock", d.lockPath),
		logging.String("incoming", d.cfg.Paths.IncomingDir),
	)
	return nil
}

// Done is closed when the watcher exits. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the error the watcher exited with, if any.
func (d *Daemon) Err() error {
	if d.done == nil {
		return nil
	}
	select {
	case <-d.done:
		return d.runErr
	default:
		return nil
	}
}

// Stop cancels the watcher, waits for in-flight dispatches, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ticketdesk daemon stopped")
}

// Close stops the daemon and closes the ledger.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Registry exposes the prometheus registry backing /metrics.
func (d *Daemon) Registry() *prometheus.Registry {
	return d.registry
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LedgerPath:   d.store.Path(),
		LockFilePath: d.lockPath,
		IncomingDir:  d.cfg.Paths.IncomingDir,
		InFlight:     d.watcher.InFlight(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
		Checks:       preflight.RunAll(ctx, d.cfg),
	}
	if status.Running {
		status.StartedAt = d.started
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("ledger stats unavailable", logging.Error(err))
	} else {
		status.Stats = stats
		status.SuccessRate = stats.SuccessRate()
	}
	return status
}

// RecentIntakes lists recent ledger rows, optionally for one ticket.
func (d *Daemon) RecentIntakes(ctx context.Context, limit int, ticketID string) ([]ledger.Intake, error) {
	return d.store.RecentIntakes(ctx, limit, ticketID)
}
