package litrun

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultWorkspace is the scratch directory, relative to the invocation directory
const DefaultWorkspace = "out"

// ErrUnsafeTarget is returned for file targets that would be written outside the workspace
var ErrUnsafeTarget = errors.New("file target escapes workspace")

type WorkspaceOptions struct {
	// Create missing parent directories of @dir/file targets
	CreateParents bool
	// Move the previous workspace aside instead of deleting it
	Backup bool
}

// Workspace is the scratch directory a document's files are written to
// and its executable blocks run in
type Workspace struct {
	dir    string
	opts   WorkspaceOptions
	backup *BackupManager
}

// NewWorkspace resolves dir to an absolute path once, so later changes to the
// process working directory do not move the workspace
func NewWorkspace(dir string, opts WorkspaceOptions) (*Workspace, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace path: %w", err)
	}
	return &Workspace{
		dir:    abs,
		opts:   opts,
		backup: NewBackupManager(),
	}, nil
}

// Dir returns the absolute workspace path
func (w *Workspace) Dir() string {
	return w.dir
}

// SetCreateParents toggles parent directory creation for later Materialize calls
func (w *Workspace) SetCreateParents(enabled bool) {
	w.opts.CreateParents = enabled
}

// Reset destroys the workspace if it exists and recreates it empty
func (w *Workspace) Reset() error {
	if w.opts.Backup {
		if _, err := w.backup.CreateBackupOf(w.dir); err != nil {
			return fmt.Errorf("backup workspace: %w", err)
		}
	}

	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	slog.Debug("reset workspace", "dir", w.dir)
	return nil
}

// Materialize writes every file target into the workspace in order, and
// returns the paths written relative to the workspace
func (w *Workspace) Materialize(files []FileTarget) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		path, err := w.targetPath(f.Name)
		if err != nil {
			return written, err
		}

		if w.opts.CreateParents {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return written, fmt.Errorf("creating parent directory of %s: %w", f.Name, err)
			}
		}

		if err := os.WriteFile(path, []byte(f.Content()), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Name, err)
		}

		slog.Debug("materialized file", "file", f.Name, "fragments", len(f.Fragments))
		written = append(written, f.Name)
	}
	return written, nil
}

// targetPath resolves a file target name to an absolute path inside the workspace
func (w *Workspace) targetPath(name string) (string, error) {
	if !IsLocalTarget(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeTarget, name)
	}
	return filepath.Join(w.dir, filepath.FromSlash(name)), nil
}

// IsLocalTarget reports whether a file target name stays inside the workspace
func IsLocalTarget(name string) bool {
	return filepath.IsLocal(filepath.FromSlash(name))
}
