package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Outcome labels for a dispatch.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
	OutcomeUnstable = "unstable"
	OutcomeSkipped  = "skipped"
)

// Report is the JSON line an intake worker prints with --json. Only the fields
// the watcher acts on are decoded.
type Report struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	TicketID  string `json:"ticket_id"`
	ErrorKind string `json:"error_kind"`
}

// WorkerResult describes one worker run.
type WorkerResult struct {
	Outcome  string
	ExitCode int
	Duration time.Duration
	// Report is nil when the worker printed nothing decodable, which means it
	// crashed before recording its own ledger entry.
	Report *Report
	Stderr string
	Err    error
}

// Worker runs intake for one file.
type Worker interface {
	Run(ctx context.Context, path string) WorkerResult
}

// ProcessWorker runs `<Binary> [--config ConfigPath] intake --json <path>` in
// its own process group and kills the whole group on timeout.
type ProcessWorker struct {
	Binary     string
	ConfigPath string
	Timeout    time.Duration
}

var commandContext = exec.CommandContext

// Args returns the worker's argument list for path.
func (w ProcessWorker) Args(path string) []string {
	var args []string
	if strings.TrimSpace(w.ConfigPath) != "" {
		args = append(args, "--config", w.ConfigPath)
	}
	return append(args, "intake", "--json", path)
}

// Run executes the worker and classifies how it ended.
func (w ProcessWorker) Run(ctx context.Context, path string) WorkerResult {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := commandContext(runCtx, w.Binary, w.Args(path)...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	result := WorkerResult{
		Duration: time.Since(started),
		Report:   decodeReport(stdout.Bytes()),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		result.Outcome = OutcomeCanceled
		result.Err = ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Outcome = OutcomeTimeout
		result.Err = fmt.Errorf("worker exceeded %s", timeout)
	case err != nil:
		result.Outcome = OutcomeFailed
		result.Err = err
	case result.Report != nil && result.Report.Status != "" && result.Report.Status != OutcomeSuccess:
		result.Outcome = OutcomeFailed
	default:
		result.Outcome = OutcomeSuccess
	}
	return result
}

// decodeReport returns the last JSON object in out.
func decodeReport(out []byte) *Report {
	dec := json.NewDecoder(bytes.NewReader(out))
	var last *Report
	for {
		var r Report
		if err := dec.Decode(&r); err != nil {
			return last
		}
		last = &r
	}
}
