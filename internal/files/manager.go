package files

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "wbbcli/internal/errors"
)

// FlattenSeparator replaces path separators when a relative input path is
// turned into an output file name.
const FlattenSeparator = "-"

// Manager provides file operations rooted at an output directory
type Manager struct {
	baseDir string
}

// NewManager creates a new file manager instance. The base directory is made
// absolute so derived paths stay valid if the working directory changes.
func NewManager(baseDir string) *Manager {
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Manager{baseDir: filepath.Clean(baseDir)}
}

// BaseDir returns the directory relative paths are resolved against
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Flatten replaces every path separator of rel with FlattenSeparator
func Flatten(rel string) string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	return strings.ReplaceAll(rel, "/", FlattenSeparator)
}

// OutputPath derives the output artifact path for an input file path relative
// to the input root: the artifact lives in a subdirectory named after the
// flattened parent path and is named after the flattened relative path plus
// ext. Inputs at the root land directly in the base directory.
func (m *Manager) OutputPath(rel, ext string) string {
	name := Flatten(rel) + ext
	parent := filepath.Dir(filepath.Clean(rel))
	if parent == "." {
		return filepath.Join(m.baseDir, name)
	}
	return filepath.Join(m.baseDir, Flatten(parent), name)
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	slog.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.resolvePath(path)

	slog.Debug("Ensuring directory exists",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).
			WithContext("path", fullPath)
	}
	return nil
}

// WriteAtomic creates path through a temporary file in the same directory.
// write receives the open temporary file; the file is synced and renamed into
// place only when write succeeds, so readers never observe a partial artifact.
func (m *Manager) WriteAtomic(path string, write func(w io.WriteSeeker) error) (err error) {
	fullPath := m.resolvePath(path)
	dir := filepath.Dir(fullPath)
	if err := m.EnsureDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to create temporary file", err).
			WithContext("path", fullPath)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return apperrors.NewStorageError("failed to sync file", err).WithContext("path", fullPath)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close file", err).WithContext("path", fullPath)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return apperrors.NewStorageError("failed to set file mode", err).WithContext("path", fullPath)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return apperrors.NewStorageError("failed to move file into place", err).WithContext("path", fullPath)
	}

	slog.Debug("Wrote file atomically", slog.String("path", fullPath))
	return nil
}

// WriteLines atomically writes header followed by one line per entry
func (m *Manager) WriteLines(path, header string, lines []string) error {
	return m.WriteAtomic(path, func(w io.WriteSeeker) error {
		bw := bufio.NewWriter(w)
		if _, err := fmt.Fprintln(bw, header); err != nil {
			return apperrors.NewStorageError("failed to write header", err)
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return apperrors.NewStorageError("failed to write line", err)
			}
		}
		if err := bw.Flush(); err != nil {
			return apperrors.NewStorageError("failed to flush file", err)
		}
		return nil
	})
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(m.resolvePath(path))
}

// GetRelativePath returns the path relative to the base path
func (m *Manager) GetRelativePath(fullPath string) (string, error) {
	return filepath.Rel(m.baseDir, fullPath)
}

// Contains reports whether path is root itself or lies below it
func Contains(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolvePath resolves a relative path against the base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.baseDir, path)
}
