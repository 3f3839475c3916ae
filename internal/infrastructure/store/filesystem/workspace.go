package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
)

const MainFile = "main.tf"

// Workspace is a private temporary directory for one terraform run. The caller
// owns it and must call Remove.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under baseDir (os.TempDir when empty).
func NewWorkspace(baseDir, prefix string) (*Workspace, error) {
	if baseDir != "" {
		info, err := os.Stat(baseDir)
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(baseDir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, mkErr)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to check directory %s: %w", baseDir, err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("path %s exists but is not a directory", baseDir)
		}
	}

	dir, err := os.MkdirTemp(baseDir, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

// WriteFile writes content to name inside the workspace. name must be a plain
// file name.
func (w *Workspace) WriteFile(name, content string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", name, err)
	}
	return path, nil
}

func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to delete workspace %s: %w", w.dir, err)
	}
	return nil
}
