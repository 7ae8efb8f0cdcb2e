package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the store lock past the timeout.
var ErrLocked = errors.New("stores are locked by another process")

// LockPath returns the lock file that guards the stores rooted next to dbPath.
func LockPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "kotae.lock")
}

// AcquireLock takes the process-wide store lock at path, retrying until timeout.
// The returned func releases it.
func AcquireLock(path string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return func() {}, fmt.Errorf("failed to create lock directory: %w", err)
	}
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire store lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s)", ErrLocked, path)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
