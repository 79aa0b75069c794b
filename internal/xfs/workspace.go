package xfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Workspace is a temporary directory owned by a single request.
// Everything created inside it is removed by Close.
type Workspace struct {
	dir string
}

// NewWorkspace creates a uniquely named directory under root.
// An empty root uses the system temporary directory.
func NewWorkspace(root, pattern string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create temp root %s: %w", root, err)
		}
	}

	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.dir); err != nil {
		slog.Warn("Failed to remove workspace", "dir", w.dir, "error", err)
		return err
	}

	return nil
}
