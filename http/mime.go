package http

import (
	"path"
	"strings"
)

const DefaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".avif": "image/avif",
	".xml":  "application/xml",
	".zip":  "application/zip",
	".wasm": "application/wasm",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".txt":  "text/plain",
	".csv":  "text/csv",
}

// MimeType maps the extension of p to a content type. A trailing .gz is
// ignored so compressed twins report the type of their content.
func MimeType(p string) string {
	p = strings.TrimSuffix(p, ".gz")
	if mimeType, found := mimeTypes[strings.ToLower(path.Ext(p))]; found {
		return mimeType
	}
	return DefaultMimeType
}

func isHTML(contentType string) bool {
	return contentType == "text/html"
}
