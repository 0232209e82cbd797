package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ticketdesk/internal/config"
	"ticketdesk/internal/deps"
	"ticketdesk/internal/fileutil"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/preflight"
)

type directoryStatus struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Entries int    `json:"entries"`
	Detail  string `json:"detail,omitempty"`
}

type ledgerStatus struct {
	Path        string        `json:"path"`
	Stats       *ledger.Stats `json:"stats,omitempty"`
	SuccessRate float64       `json:"success_rate"`
	Grade       string        `json:"grade"`
	Error       string        `json:"error,omitempty"`
}

type statusReport struct {
	ConfigPath   string                 `json:"config_path"`
	ConfigFound  bool                   `json:"config_found"`
	Dependencies []deps.Status          `json:"dependencies"`
	Vision       preflight.Result       `json:"vision"`
	Directories  []directoryStatus      `json:"directories"`
	Disk         preflight.Result       `json:"disk"`
	Watcher      preflight.WatcherProbe `json:"watcher"`
	Ledger       ledgerStatus           `json:"ledger"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline health: dependencies, directories, watcher, and ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := collectStatus(cmd.Context(), ctx, cfg)
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			printStatus(cmd, report, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func collectStatus(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) statusReport {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	report := statusReport{
		ConfigPath:   ctx.configPath,
		ConfigFound:  ctx.configExists,
		Dependencies: preflight.CheckSystemDeps(cmdCtx, cfg),
		Vision:       preflight.CheckVisionCredentials(cfg),
		Disk:         preflight.CheckDiskSpace("Disk space", cfg.Paths.BaseDir, preflight.MinFreeBytes),
		Watcher:      preflight.ProbeWatcher(cfg.LockPath()),
		Ledger:       ledgerStatus{Path: cfg.LedgerPath()},
	}
	for _, dir := range preflight.Directories(cfg) {
		check := preflight.CheckDirectoryAccess(dir.Name, dir.Path)
		entry := directoryStatus{Name: dir.Name, Path: dir.Path, Exists: check.Passed}
		if check.Passed {
			entry.Entries = fileutil.CountEntries(dir.Path)
		} else {
			entry.Detail = check.Detail
		}
		report.Directories = append(report.Directories, entry)
	}

	store, err := ctx.openLedger()
	if err != nil {
		report.Ledger.Error = err.Error()
		report.Ledger.Grade = statusKindLabel(statusError)
		return report
	}
	defer store.Close()
	stats, err := store.Stats(cmdCtx)
	if err != nil {
		report.Ledger.Error = err.Error()
		report.Ledger.Grade = statusKindLabel(statusError)
		return report
	}
	report.Ledger.Stats = &stats
	report.Ledger.SuccessRate = stats.SuccessRate()
	report.Ledger.Grade = statusKindLabel(successRateKind(stats.Total, report.Ledger.SuccessRate))
	return report
}

func printStatus(cmd *cobra.Command, report statusReport, colorize bool) {
	var lines []string

	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	configMsg := report.ConfigPath
	configKind := statusOK
	if !report.ConfigFound {
		configMsg += " (defaults)"
		configKind = statusInfo
	}
	lines = append(lines, renderStatusLine("Config", configKind, configMsg, colorize), "")

	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range report.Dependencies {
		kind := statusOK
		msg := dep.Version
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			msg = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, msg, colorize))
	}
	visionKind := statusOK
	if !report.Vision.Passed {
		visionKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Vision API key", visionKind, report.Vision.Detail, colorize), "")

	lines = append(lines, renderSectionHeader("Directories", colorize)...)
	for _, dir := range report.Directories {
		if !dir.Exists {
			lines = append(lines, renderStatusLine(dir.Name, statusError, dir.Detail, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(dir.Name, statusOK, fmt.Sprintf("%d items  %s", dir.Entries, dir.Path), colorize))
	}
	diskKind := statusOK
	if !report.Disk.Passed {
		diskKind = statusError
	}
	lines = append(lines, renderStatusLine("Disk space", diskKind, report.Disk.Detail, colorize), "")

	lines = append(lines, renderSectionHeader("Watcher", colorize)...)
	watcherKind := statusWarn
	if report.Watcher.Running {
		watcherKind = statusOK
	}
	lines = append(lines, renderStatusLine("Daemon", watcherKind, report.Watcher.String(), colorize), "")

	lines = append(lines, renderSectionHeader("Ledger", colorize)...)
	switch {
	case report.Ledger.Error != "":
		lines = append(lines, renderStatusLine("Ledger", statusError, report.Ledger.Error, colorize))
	case report.Ledger.Stats == nil || report.Ledger.Stats.Total == 0:
		lines = append(lines, renderStatusLine("Success rate", statusInfo, "no intakes recorded", colorize))
	default:
		stats := report.Ledger.Stats
		kind := successRateKind(stats.Total, report.Ledger.SuccessRate)
		rate := fmt.Sprintf("%.1f%% of %d intakes", report.Ledger.SuccessRate, stats.Total)
		lines = append(lines,
			renderStatusLine("Success rate", kind, rate, colorize),
			renderStatusLine("Failed", statusInfo, fmt.Sprintf("%d", stats.ByStatus[ledger.StatusFailed]+stats.ByStatus[ledger.StatusTimeout]), colorize),
			renderStatusLine("Mean confidence", statusInfo, fmt.Sprintf("%.2f", stats.MeanConfidence), colorize),
			renderStatusLine("Low confidence", statusInfo, fmt.Sprintf("%d", stats.LowConfidence), colorize),
			renderStatusLine("Archived", statusInfo, fmt.Sprintf("%d", stats.Archived), colorize),
		)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
}
