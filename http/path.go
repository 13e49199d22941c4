package http

import "strings"

// NormalizePath turns a request target into a clean path and its segments.
// The query is dropped, %XX escapes are decoded ('+' stays literal), empty
// segments are removed. The result always starts with '/' and only the root
// ends with one.
func NormalizePath(target string) (string, []string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}

	segments := splitPath(unescape(target, false))
	if len(segments) == 0 {
		return "/", segments
	}

	return "/" + strings.Join(segments, "/"), segments
}

func splitPath(path string) []string {
	segments := make([]string, 0, strings.Count(path, "/")+1)
	for len(path) > 0 {
		i := strings.IndexByte(path, '/')
		if i < 0 {
			segments = append(segments, path)
			break
		}
		if i > 0 {
			segments = append(segments, path[:i])
		}
		path = path[i+1:]
	}
	return segments
}

// rawPathHasTrailingSlash reports whether the undecoded path part of target
// ends in '/' and is not the root.
func rawPathHasTrailingSlash(target string) bool {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	return len(target) > 1 && target[len(target)-1] == '/'
}
