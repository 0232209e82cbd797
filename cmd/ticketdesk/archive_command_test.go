package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ticketdesk/internal/archive"
)

func TestArchiveThenVerify(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"templates", "init"}, env.configPath)
	if err != nil {
		t.Fatalf("templates init: %v", err)
	}
	requireContains(t, out, "Wrote")
	out, _, err = runCLI(t, []string{"templates", "init"}, env.configPath)
	if err != nil {
		t.Fatalf("templates init again: %v", err)
	}
	requireContains(t, out, "already exists")

	out, _, err = runCLI(t, []string{"archive", "13624970", "C042", "Singtech Inc", "--trading-partner", "Target", "--resolution-type", "workaround", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	var result archive.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode archive result: %v\n%s", err, out)
	}
	for _, sub := range archive.Subdirectories {
		if info, err := os.Stat(filepath.Join(result.Folder, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s/ in package: %v", sub, err)
		}
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning about the missing intake folder")
	}

	// Without intake artifacts the package is structurally incomplete.
	out, _, err = runCLI(t, []string{"verify", "--json", result.Folder}, env.configPath)
	if !errors.Is(err, errReported) {
		t.Fatalf("expected verify to fail, got %v", err)
	}
	var report archive.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode verify report: %v\n%s", err, out)
	}
	if len(report.Issues) == 0 || len(report.Recommendations) == 0 {
		t.Fatalf("expected issues with recommendations, got %+v", report)
	}

	out, _, _ = runCLI(t, []string{"verify", result.Folder}, env.configPath)
	requireContains(t, out, "Archive incomplete")
	requireContains(t, out, "Recommendations")
}

func TestArchiveRejectsUnknownResolutionType(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"archive", "1", "C1", "Acme", "--resolution-type", "shrug"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid resolution type error")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	cacheDir := env.cfg.OCRCacheDir()
	if err := os.MkdirAll(filepath.Join(cacheDir, "scan_abc"), 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "scan_abc", "page-1.png"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var stats struct {
		FileCount int `json:"file_count"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.FileCount != 1 {
		t.Fatalf("expected 1 cached file, got %d", stats.FileCount)
	}

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 1 cached file")
	if entries, _ := os.ReadDir(cacheDir); len(entries) != 0 {
		t.Fatalf("expected empty cache, found %d entries", len(entries))
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}
