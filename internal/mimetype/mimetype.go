// Package mimetype supplies the default content-type detection collaborator
// used by the filesystem facade and the bundled adapters. Detection tries the
// path extension first and falls back to content sniffing when a prefix of
// the data is available.
package mimetype

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

const defaultType = "application/octet-stream"

// SniffLen is the number of leading bytes worth passing to Detect; more is
// never inspected.
const SniffLen = 512

// extensions covers common types that the platform mime database may miss.
var extensions = map[string]string{
	".json": "application/json",
	".xml":  "application/xml",
	".html": "text/html",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
}

// ByExtension maps a path to a content type using its extension alone.
// It returns "" when the extension is unknown.
func ByExtension(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if ct, ok := extensions[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		// Strip charset parameters; callers want the bare type.
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = strings.TrimSpace(ct[:i])
		}
		return ct
	}
	return ""
}

// Detect maps a path and an optional content prefix to a content type. It
// satisfies types.MimeDetector.
func Detect(p string, head []byte) string {
	if ct := ByExtension(p); ct != "" {
		return ct
	}
	if len(head) > 0 {
		if len(head) > SniffLen {
			head = head[:SniffLen]
		}
		if ct := http.DetectContentType(head); ct != "" {
			if i := strings.IndexByte(ct, ';'); i >= 0 {
				ct = strings.TrimSpace(ct[:i])
			}
			return ct
		}
	}
	return defaultType
}
