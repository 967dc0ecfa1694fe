package files

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperrors "wbbcli/internal/errors"
)

// FileInfo represents a directory or file visited by a Walker
type FileInfo struct {
	Path    string
	RelPath string // relative to the walk root, "." for the root itself
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	Depth   int // directories below the root; files share their directory's depth
}

// WalkFunc is called for every directory within depth and every file inside
// such a directory. Returning an error stops the walk and is returned by Walk.
type WalkFunc func(info FileInfo) error

// Walker enumerates a recording tree top-down. A directory's files are
// visited before any of its subdirectories are entered, both in os.ReadDir
// order. Directories deeper than MaxDepth are never listed.
type Walker struct {
	root     string
	maxDepth int
	exclude  map[string]struct{}
}

// NewWalker creates a walker rooted at root. A negative maxDepth disables the
// depth limit.
func NewWalker(root string, maxDepth int) *Walker {
	return &Walker{root: filepath.Clean(root), maxDepth: maxDepth, exclude: map[string]struct{}{}}
}

// Exclude prevents a directory (and everything below it) from being walked.
// Paths are compared after resolving them to absolute form.
func (w *Walker) Exclude(dir string) *Walker {
	if abs, err := filepath.Abs(dir); err == nil {
		w.exclude[abs] = struct{}{}
	}
	return w
}

// Root returns the walk root
func (w *Walker) Root() string {
	return w.root
}

// Walk visits the tree. Directory listing failures abort the walk with a
// STORAGE error.
func (w *Walker) Walk(fn WalkFunc) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return apperrors.NewStorageError("failed to access input directory", err).
			WithContext("path", w.root)
	}
	if !info.IsDir() {
		return apperrors.NewStorageError("input path is not a directory", nil).
			WithContext("path", w.root)
	}
	return w.walkDir(FileInfo{
		Path:    w.root,
		RelPath: ".",
		Name:    info.Name(),
		ModTime: info.ModTime(),
		IsDir:   true,
	}, fn)
}

func (w *Walker) walkDir(dir FileInfo, fn WalkFunc) error {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		return apperrors.NewStorageError("failed to read directory", err).
			WithContext("path", dir.Path)
	}

	if err := fn(dir); err != nil {
		return err
	}

	var subdirs []FileInfo
	for _, entry := range entries {
		path := filepath.Join(dir.Path, entry.Name())
		info, ok := w.classify(path, entry)
		if !ok {
			continue
		}

		info.Path = path
		info.Name = entry.Name()
		info.RelPath = entry.Name()
		if dir.RelPath != "." {
			info.RelPath = filepath.Join(dir.RelPath, entry.Name())
		}

		if !info.IsDir {
			info.Depth = dir.Depth
			if err := fn(info); err != nil {
				return err
			}
			continue
		}

		info.Depth = dir.Depth + 1
		if w.maxDepth >= 0 && info.Depth > w.maxDepth {
			continue
		}
		if w.excluded(path) {
			continue
		}
		subdirs = append(subdirs, info)
	}

	for _, sub := range subdirs {
		if err := w.walkDir(sub, fn); err != nil {
			return err
		}
	}
	return nil
}

// classify keeps regular files, real directories and symlinks to regular
// files. Symlinked directories are not followed; sockets, devices and broken
// links are ignored.
func (w *Walker) classify(path string, entry fs.DirEntry) (FileInfo, bool) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		info, err := entry.Info()
		if err != nil {
			return FileInfo{}, false
		}
		return FileInfo{IsDir: true, ModTime: info.ModTime()}, true
	case mode&fs.ModeSymlink != 0:
		target, err := os.Stat(path)
		if err != nil || !target.Mode().IsRegular() {
			return FileInfo{}, false
		}
		return FileInfo{Size: target.Size(), ModTime: target.ModTime()}, true
	case mode.IsRegular():
		info, err := entry.Info()
		if err != nil {
			return FileInfo{}, false
		}
		return FileInfo{Size: info.Size(), ModTime: info.ModTime()}, true
	default:
		return FileInfo{}, false
	}
}

func (w *Walker) excluded(path string) bool {
	if len(w.exclude) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := w.exclude[abs]
	return ok
}

// Collect walks the tree and returns the files in visit order
func (w *Walker) Collect() ([]FileInfo, error) {
	var out []FileInfo
	err := w.Walk(func(info FileInfo) error {
		if !info.IsDir {
			out = append(out, info)
		}
		return nil
	})
	return out, err
}
