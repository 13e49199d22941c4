package http

import (
	"path"
	"strings"

	"github.com/freekieb7/espweb/filesystem"
)

var indexFiles = [...]string{"index.html", "index.htm"}

// StaticInfo describes one static lookup. LogicalPath is the mount relative
// path of the content without any .gz suffix and drives the content type.
type StaticInfo struct {
	URI         string
	RelPath     string
	FSPath      string
	Exists      bool
	IsDir       bool
	IsGzipped   bool
	LogicalPath string
}

func (info *StaticInfo) ContentType() string {
	return MimeType(info.LogicalPath)
}

// StaticHandler takes over a static request. When it returns without
// sending, the resolved resource is sent or a 404 is produced.
type StaticHandler func(info *StaticInfo, req *Request, res *Response)

type mount struct {
	prefix   string
	fs       filesystem.Filesystem
	basePath string
	handler  StaticHandler
}

// relative strips the mount prefix from a normalized path.
func (m *mount) relative(p string, trailingSlash bool) (string, bool) {
	var rel string
	switch {
	case m.prefix == "/":
		rel = p
	case p == m.prefix:
		rel = "/"
	case strings.HasPrefix(p, m.prefix) && p[len(m.prefix)] == '/':
		rel = p[len(m.prefix):]
	default:
		return "", false
	}

	if trailingSlash && rel != "/" {
		rel += "/"
	}
	return rel, true
}

func (m *mount) resolve(uri, rel string) (StaticInfo, error) {
	return resolveStatic(m.fs, m.basePath, uri, rel)
}

// resolveStatic applies the lookup order shared by every backend: an
// explicit .gz request only matches itself, otherwise the .gz twin wins over
// the plain file, and directories fall back to their index file.
func resolveStatic(fsys filesystem.Filesystem, basePath, uri, rel string) (StaticInfo, error) {
	info := StaticInfo{URI: uri, RelPath: rel}

	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return info, nil
		}
	}

	target := path.Join("/", basePath, rel)

	if strings.HasSuffix(rel, ".gz") {
		exists, err := fsys.FileExists(target)
		if err != nil || !exists {
			return info, err
		}
		info.Exists, info.IsGzipped = true, true
		info.FSPath = target
		info.LogicalPath = strings.TrimSuffix(rel, ".gz")
		return info, nil
	}

	trailingSlash := strings.HasSuffix(rel, "/")
	if !trailingSlash {
		found, err := probeStatic(fsys, &info, target, rel)
		if err != nil || found {
			return info, err
		}
	}

	isDir := trailingSlash
	if !isDir {
		var err error
		if isDir, err = fsys.IsDirectory(target); err != nil {
			return info, err
		}
	}
	if !isDir {
		return info, nil
	}

	for _, index := range indexFiles {
		found, err := probeStatic(fsys, &info, path.Join(target, index), path.Join("/", rel, index))
		if err != nil || found {
			return info, err
		}
	}

	info.IsDir = true
	return info, nil
}

func probeStatic(fsys filesystem.Filesystem, info *StaticInfo, target, logical string) (bool, error) {
	exists, err := fsys.FileExists(target + ".gz")
	if err != nil {
		return false, err
	}
	if exists {
		info.Exists, info.IsGzipped = true, true
		info.FSPath = target + ".gz"
		info.LogicalPath = logical
		return true, nil
	}

	exists, err = fsys.FileExists(target)
	if err != nil {
		return false, err
	}
	if exists {
		info.Exists = true
		info.FSPath = target
		info.LogicalPath = logical
		return true, nil
	}

	return false, nil
}
