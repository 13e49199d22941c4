package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Error constants for better error handling
var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrIsDirectory  = errors.New("filesystem: path is a directory")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
)

// Filesystem is the read-only store static files are served from. Paths are
// slash separated and relative to the store root; a leading slash is allowed.
type Filesystem interface {
	Open(path string) (io.ReadCloser, error)

	// FileExists reports whether a regular file exists at path.
	FileExists(path string) (bool, error)
	FileSize(path string) (int64, error)
	IsDirectory(path string) (bool, error)
}

type localFileSystem struct {
	root string
}

// NewLocalFileSystem serves the directory tree below root.
func NewLocalFileSystem(root string) Filesystem {
	return &localFileSystem{root: filepath.Clean(root)}
}

func (filesystem *localFileSystem) resolve(path string) (string, error) {
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}

	return filepath.Join(filesystem.root, filepath.FromSlash(strings.TrimPrefix(path, "/"))), nil
}

func (filesystem *localFileSystem) stat(path string) (os.FileInfo, error) {
	fullPath, err := filesystem.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		// a file used as a directory ("f.html/x") fails with ENOTDIR
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return info, nil
}

func (filesystem *localFileSystem) Open(path string) (io.ReadCloser, error) {
	info, err := filesystem.stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	fullPath, _ := filesystem.resolve(path)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (filesystem *localFileSystem) FileExists(path string) (bool, error) {
	info, err := filesystem.stat(path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrInvalidPath) {
			return false, nil
		}
		return false, err
	}

	return info.Mode().IsRegular(), nil
}

func (filesystem *localFileSystem) FileSize(path string) (int64, error) {
	info, err := filesystem.stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, ErrIsDirectory
	}

	return info.Size(), nil
}

func (filesystem *localFileSystem) IsDirectory(path string) (bool, error) {
	info, err := filesystem.stat(path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrInvalidPath) {
			return false, nil
		}
		return false, err
	}

	return info.IsDir(), nil
}

// Close closes c and logs a failure instead of returning it.
func Close(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Error("closing file error", "error", err)
	}
}
