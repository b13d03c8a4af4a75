package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Publisher accepts rendered report content for external publication. It is
// invoked only after aggregation completes and never blocks ingestion; the
// commit/push automation behind a published checkout is outside this module.
type Publisher interface {
	Publish(name string, content []byte) error
}

// DirPublisher writes report files into a directory, typically a repository
// checkout that an external job commits and pushes.
type DirPublisher struct {
	Dir string
}

// NewDirPublisher creates a publisher writing into dir, creating it if
// needed.
func NewDirPublisher(dir string) (*DirPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	return &DirPublisher{Dir: dir}, nil
}

func (p *DirPublisher) Publish(name string, content []byte) error {
	path := filepath.Join(p.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}
