package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ticketdesk/internal/fileutil"
	"ticketdesk/internal/services"
)

// ErrorReport is written next to a quarantined file.
type ErrorReport struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
	File      string `json:"file"`
	Timestamp string `json:"timestamp"`
}

// Quarantine copies source into failedDir and writes <stem>_error.json. The
// report is written even when the copy fails; copyErr reports that failure.
func Quarantine(failedDir, source string, cause error, now time.Time) (failedPath, errorFile string, copyErr error) {
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create quarantine dir: %w", err)
	}
	base := filepath.Base(source)
	failedPath = filepath.Join(failedDir, base)
	if err := fileutil.CopyPreserve(source, failedPath); err != nil {
		copyErr = err
		failedPath = ""
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	errorFile = filepath.Join(failedDir, stem+"_error.json")
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	report := ErrorReport{
		Error:     message,
		ErrorKind: services.Kind(cause),
		File:      base,
		Timestamp: now.Format(time.RFC3339),
	}
	if err := fileutil.WriteJSON(errorFile, report); err != nil {
		return failedPath, "", fmt.Errorf("write error report: %w", err)
	}
	return failedPath, errorFile, copyErr
}
