package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"ticketdesk/internal/config"
	"ticketdesk/internal/daemon"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
)

// run starts the daemon and blocks until ctx is canceled or the watcher exits.
func run(ctx context.Context, configPath string) error {
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, retentionTargets(cfg)...); removed > 0 {
		logger.Info("pruned old logs", logging.Int("removed", removed))
	}

	// Workers only get --config when a file actually backs this process.
	workerConfig := ""
	if exists {
		workerConfig = resolved
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	d, err := daemon.New(cfg, workerConfig, store, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}
	return wait(ctx, d, logger)
}

func wait(ctx context.Context, d *daemon.Daemon, logger *slog.Logger) error {
	select {
	case <-ctx.Done():
		logger.Info("ticketdeskd shutting down")
		return nil
	case <-d.Done():
		if err := d.Err(); err != nil {
			return fmt.Errorf("watcher exited: %w", err)
		}
		return nil
	}
}

func retentionTargets(cfg *config.Config) []logging.RetentionTarget {
	return []logging.RetentionTarget{
		{
			Dir:     cfg.Paths.LogDir,
			Pattern: "*.log",
			Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
		},
	}
}
