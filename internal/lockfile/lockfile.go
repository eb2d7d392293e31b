// Package lockfile guards a directory against concurrent writers in other
// processes.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Name is the lock file created inside a guarded directory.
const Name = ".charocr.lock"

// DefaultTimeout is how long Acquire waits for a busy lock.
const DefaultTimeout = 5 * time.Second

const pollInterval = 100 * time.Millisecond

// Acquire takes the exclusive lock of dir, creating the directory if needed.
// The returned func releases it.
func Acquire(dir string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return func() {}, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	lockPath := filepath.Join(dir, Name)
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%s is locked by another process (lock: %s)", dir, lockPath)
		}
		time.Sleep(pollInterval)
	}
}
