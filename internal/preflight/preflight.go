package preflight

import (
	"context"

	"ticketdesk/internal/config"
)

// MinFreeBytes is the free space below which the disk check fails.
const MinFreeBytes = 500 * 1024 * 1024

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional failures degrade a feature rather than the whole pipeline.
	Optional bool `json:"optional,omitempty"`
}

// RunAll executes every preflight check for cfg.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	for _, dir := range Directories(cfg) {
		results = append(results, CheckDirectoryAccess(dir.Name, dir.Path))
	}
	results = append(results, CheckDiskSpace("Disk space", cfg.Paths.BaseDir, MinFreeBytes))
	results = append(results, CheckVisionCredentials(cfg))
	return results
}

// NamedDir pairs a display name with a configured directory.
type NamedDir struct {
	Name string
	Path string
}

// Directories lists the ticket tree in display order.
func Directories(cfg *config.Config) []NamedDir {
	return []NamedDir{
		{"Incoming", cfg.Paths.IncomingDir},
		{"Quarantine", cfg.Paths.FailedDir},
		{"Processing", cfg.Paths.ProcessingDir},
		{"Resolution", cfg.Paths.ResolutionDir},
		{"Customers", cfg.Paths.CustomersDir},
	}
}
