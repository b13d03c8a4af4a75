package cursor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLockHeld reports that another ingestion run currently holds the lock.
// Contention is not an error state for the system: the losing run exits
// early with a distinct status instead of interleaving cursor updates.
var ErrLockHeld = errors.New("ingest lock held by another run")

// Lock is an exclusive lease over the cursor and event store, enforcing the
// single-writer contract. The lock file records the holder's pid.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock at path, failing with ErrLockHeld when another
// process already holds it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLockHeld, path)
		}
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write ingest lock: %w", err)
	}
	return &Lock{path: path, file: f}, nil
}

// Release frees the lock. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release ingest lock: %w", err)
	}
	return nil
}
