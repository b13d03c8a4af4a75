// Package cursor persists the ingest cursor: the byte offset of the first
// unconsumed byte in the honeypot log. The pipeline advances it only after
// the corresponding events are durably committed to the event store.
package cursor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store reads and durably writes the single cursor value.
type Store struct {
	path string
}

// NewStore creates a cursor store backed by the file at path. The file is
// created on first write; a missing file reads as offset 0.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Read returns the saved offset, or 0 when no cursor has been written yet.
func (s *Store) Read() (int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cursor file %s: %w", s.path, err)
	}
	if offset < 0 {
		return 0, fmt.Errorf("corrupt cursor file %s: negative offset %d", s.path, offset)
	}
	return offset, nil
}

// Write durably records offset. The value is written to a temp file, synced
// and renamed into place, so a crash leaves either the old value or the new
// one, never a torn write.
func (s *Store) Write(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("write cursor: negative offset %d", offset)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(offset, 10) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cursor temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename cursor into place: %w", err)
	}
	return nil
}
