package filesystem

import (
	"bytes"
	"io"
	"io/fs"
	"sort"
	"strings"
)

// MemoryFile is one entry of an in-memory file table.
type MemoryFile struct {
	Path string
	Data []byte
}

type memoryFileSystem struct {
	files map[string][]byte
	// sorted keys, used to answer directory questions by prefix
	paths []string
}

// NewMemoryFileSystem serves a fixed table of files. Directories are implied
// by the paths of the files below them.
func NewMemoryFileSystem(files []MemoryFile) Filesystem {
	filesystem := &memoryFileSystem{
		files: make(map[string][]byte, len(files)),
		paths: make([]string, 0, len(files)),
	}

	for _, file := range files {
		path := cleanMemoryPath(file.Path)
		if _, found := filesystem.files[path]; !found {
			filesystem.paths = append(filesystem.paths, path)
		}
		filesystem.files[path] = file.Data
	}
	sort.Strings(filesystem.paths)

	return filesystem
}

// MemoryFilesFromFS copies every regular file of fsys into a file table,
// typically used with an embed.FS.
func MemoryFilesFromFS(fsys fs.FS, root string) ([]MemoryFile, error) {
	var files []MemoryFile

	err := fs.WalkDir(fsys, root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(path, root)
		files = append(files, MemoryFile{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func cleanMemoryPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (filesystem *memoryFileSystem) Open(path string) (io.ReadCloser, error) {
	data, found := filesystem.files[cleanMemoryPath(path)]
	if !found {
		return nil, ErrFileNotFound
	}

	return &memoryReader{Reader: bytes.NewReader(data), data: data}, nil
}

func (filesystem *memoryFileSystem) FileExists(path string) (bool, error) {
	_, found := filesystem.files[cleanMemoryPath(path)]
	return found, nil
}

func (filesystem *memoryFileSystem) FileSize(path string) (int64, error) {
	data, found := filesystem.files[cleanMemoryPath(path)]
	if !found {
		return 0, ErrFileNotFound
	}
	return int64(len(data)), nil
}

// IsDirectory reports whether any file lives below path.
func (filesystem *memoryFileSystem) IsDirectory(path string) (bool, error) {
	prefix := cleanMemoryPath(path)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	i := sort.SearchStrings(filesystem.paths, prefix)
	return i < len(filesystem.paths) && strings.HasPrefix(filesystem.paths[i], prefix), nil
}

type memoryReader struct {
	*bytes.Reader
	data []byte
}

func (reader *memoryReader) Close() error {
	return nil
}

// Bytes exposes the whole file so callers can skip the copy loop.
func (reader *memoryReader) Bytes() []byte {
	return reader.data
}
