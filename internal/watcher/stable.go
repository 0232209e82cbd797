package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"ticketdesk/internal/services"
)

// WaitStable polls path until two consecutive reads report the same nonzero
// size. It returns that size, or an ErrTimeout error once timeout elapses.
func WaitStable(ctx context.Context, path string, poll, timeout time.Duration) (int64, error) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := int64(-1)
	var statErr error
	for {
		info, err := os.Stat(path)
		if err != nil {
			statErr = err
			last = -1
		} else {
			statErr = nil
			size := info.Size()
			if size > 0 && size == last {
				return size, nil
			}
			last = size
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			detail := fmt.Sprintf("file not stable after %s (last size %d)", timeout, last)
			return 0, services.Wrap(services.ErrTimeout, "watcher", "wait stable", detail, statErr)
		case <-ticker.C:
		}
	}
}
