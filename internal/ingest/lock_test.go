package ingest

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "data", "kotae.db"))
	if filepath.Base(path) != "kotae.lock" {
		t.Fatalf("LockPath = %q", path)
	}

	release, err := AcquireLock(path, time.Second)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	_, err = AcquireLock(path, 300*time.Millisecond)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second AcquireLock err = %v, want ErrLocked", err)
	}

	release()
	again, err := AcquireLock(path, time.Second)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	again()
}
