// Package pathutil canonicalizes and validates the root-relative paths used
// throughout driftfs. A normalized path has forward slashes, no leading or
// trailing slash, and no "." or ".." segments; the empty string denotes the
// root directory. Two paths are equal iff their normalized forms are
// byte-equal.
package pathutil

import (
	"strings"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
)

// Normalize canonicalizes raw into a root-relative path. It fails when raw
// contains a null byte or resolves outside the root via ".." traversal.
// Both "" and "." normalize to the root ("").
func Normalize(raw string) (string, error) {
	if strings.ContainsRune(raw, '\x00') {
		return "", fserrors.InvalidPath(raw, "path contains a null byte")
	}

	// Backends on Windows-style sources may hand in backslashes.
	p := strings.ReplaceAll(raw, "\\", "/")

	var parts []string
	for _, segment := range strings.Split(p, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(parts) == 0 {
				return "", fserrors.InvalidPath(raw, "path traversal escapes the root")
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, segment)
		}
	}

	return strings.Join(parts, "/"), nil
}

// Parent returns the directory containing path, "" for top-level entries and
// the root itself.
func Parent(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path, "" for the root.
func Base(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}

// IsAncestor reports whether dir strictly contains path. The root ("") is an
// ancestor of every non-root path.
func IsAncestor(dir, path string) bool {
	if path == "" || dir == path {
		return false
	}
	if dir == "" {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}

// Join joins already-normalized segments, skipping empty ones.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}
