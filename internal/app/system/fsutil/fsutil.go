// Package fsutil wraps the filesystem operations used by discovery and
// organisation so that callers can be tested against a real directory tree
// without reaching for os directly.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystem is the set of filesystem operations the stores depend on.
type FileSystem interface {
	// ListDirectories returns the absolute paths of the immediate
	// subdirectories of dir, sorted.
	ListDirectories(dir string) ([]string, error)
	// ListFilesRecursively returns the absolute paths of every non-directory
	// entry below dir, sorted.
	ListFilesRecursively(dir string) ([]string, error)
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string) error
	// Symlink creates link pointing at target, creating link's parent
	// directories as needed.
	Symlink(target, link string) error
	Rename(oldPath, newPath string) error
	// WriteFile replaces path atomically with data.
	WriteFile(path string, data []byte) error
	Open(path string) (io.ReadCloser, error)
}

// OS implements FileSystem on the host filesystem.
type OS struct{}

var _ FileSystem = OS{}

func (OS) ListDirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		p := filepath.Join(root, e.Name())
		if e.IsDir() {
			dirs = append(dirs, p)
			continue
		}
		// Symlinked directories count.
		if e.Type()&fs.ModeSymlink != 0 {
			if fi, err := os.Stat(p); err == nil && fi.IsDir() {
				dirs = append(dirs, p)
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (OS) ListFilesRecursively(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (OS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (OS) IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func (OS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (OS) Symlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, link)
}

func (OS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (OS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (OS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// RelativeSymlinkTarget returns the target to store in a symlink at link so
// that it resolves to target.
func RelativeSymlinkTarget(target, link string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(link), target)
	if err != nil {
		return "", fmt.Errorf("relative path from %s to %s: %w", link, target, err)
	}
	return rel, nil
}

// RelUnder returns path relative to base, or an error if path is not below base.
func RelUnder(base, path string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not below %s", path, base)
	}
	return rel, nil
}

// IsNotExist reports whether err signals a missing file or directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
