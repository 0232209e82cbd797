package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ticketdesk/internal/config"
	"ticketdesk/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// DiskFree returns the bytes available to unprivileged users and the total
// size of the filesystem holding path.
func DiskFree(path string) (free, total uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize) //nolint:gosec
	return st.Bavail * bsize, st.Blocks * bsize, nil
}

// CheckDiskSpace fails when less than minFree bytes remain under path.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	free, total, err := DiskFree(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%s free of %s", FormatBytes(free), FormatBytes(total))
	if free < minFree {
		return Result{Name: name, Detail: detail + fmt.Sprintf(" (below %s)", FormatBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckVisionCredentials reports whether audio/video intake can run.
func CheckVisionCredentials(cfg *config.Config) Result {
	const name = "Vision API key"
	if cfg.VisionConfigured() {
		return Result{Name: name, Passed: true, Optional: true, Detail: "configured (" + cfg.Vision.Model + ")"}
	}
	return Result{Name: name, Optional: true, Detail: "missing; set GEMINI_API_KEY to enable audio/video intake"}
}

// CheckSystemDeps evaluates the OCR binaries for cfg. Both the daemon and the
// CLI status command use it.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, deps.Requirements(cfg))
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
