package preflight

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// WatcherProbe reports whether a watcher daemon holds the state lock.
type WatcherProbe struct {
	Running  bool   `json:"running"`
	LockPath string `json:"lock_path"`
	Detail   string `json:"detail"`
}

// ProbeWatcher tries the daemon lock without blocking. A lock we can take is
// released immediately, which means no daemon is running.
func ProbeWatcher(lockPath string) WatcherProbe {
	probe := WatcherProbe{LockPath: lockPath}
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		probe.Detail = "not running (no lock file)"
		return probe
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		probe.Detail = fmt.Sprintf("unknown (%v)", err)
		return probe
	}
	if ok {
		_ = lock.Unlock()
		probe.Detail = "not running"
		return probe
	}
	probe.Running = true
	probe.Detail = "running"
	return probe
}

// String renders a display-friendly summary for status UIs.
func (p WatcherProbe) String() string {
	return p.Detail
}
