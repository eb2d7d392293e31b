package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestAcquireCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	release, err := Acquire(dir, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if _, err := os.Stat(filepath.Join(dir, Name)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	dir := t.TempDir()
	other := flock.New(filepath.Join(dir, Name))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}
	defer other.Unlock()

	if _, err := Acquire(dir, 150*time.Millisecond); err == nil {
		t.Fatal("Acquire succeeded on a held lock")
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	release, err := Acquire(dir, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	release()
	release, err = Acquire(dir, time.Second)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	release()
}
