package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ticketdesk/internal/preflight"
	"ticketdesk/internal/testsupport"
)

func TestRetentionTargetsKeepActiveLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	targets := retentionTargets(cfg)
	if len(targets) != 1 {
		t.Fatalf("expected one retention target, got %d", len(targets))
	}
	if targets[0].Dir != cfg.Paths.LogDir || targets[0].Pattern != "*.log" {
		t.Fatalf("unexpected target %+v", targets[0])
	}
	if len(targets[0].Exclude) != 1 || filepath.Base(targets[0].Exclude[0]) != "ticketdesk.log" {
		t.Fatalf("expected active log to be excluded, got %v", targets[0].Exclude)
	}
}

func TestRunHoldsLockUntilCanceled(t *testing.T) {
	t.Setenv("NTFY_TOPIC", "")
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.APIBind = ""
	cfg.Logging.Level = "error"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, configPath) }()

	// Wait for the lock file before probing so the probe never races the
	// daemon for the lock itself.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(cfg.LockPath()); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("daemon never created its lock file")
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if !preflight.ProbeWatcher(cfg.LockPath()).Running {
		cancel()
		t.Fatal("expected the running daemon to hold the lock")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	if preflight.ProbeWatcher(cfg.LockPath()).Running {
		t.Fatal("lock should be released after shutdown")
	}
}
