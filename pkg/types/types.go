package types

import (
	"time"
)

// EntryType distinguishes files from directories in metadata records.
type EntryType string

const (
	TypeFile EntryType = "file"
	TypeDir  EntryType = "dir"
)

// Visibility is the abstract access classification each adapter translates
// into its native ACL mechanism.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the recognized visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// FileInfo represents metadata about one filesystem entry.
//
// Size and MimeType are only meaningful for files. A zero Timestamp, empty
// MimeType or empty Visibility means the attribute is unknown rather than
// known to be absent.
type FileInfo struct {
	Path       string     `json:"path"`
	Type       EntryType  `json:"type"`
	Size       int64      `json:"size,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	MimeType   string     `json:"mimetype,omitempty"`
}

// IsDir reports whether the entry describes a directory.
func (fi FileInfo) IsDir() bool {
	return fi.Type == TypeDir
}

// Listing is an ordered collection of metadata records describing the
// contents of one directory.
type Listing struct {
	Directory string     `json:"directory"`
	Recursive bool       `json:"recursive"`
	Entries   []FileInfo `json:"entries"`
}

// Paths projects the listing to its path strings.
func (l Listing) Paths() []string {
	paths := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// Files projects the listing to file entries only.
func (l Listing) Files() []FileInfo {
	files := make([]FileInfo, 0, len(l.Entries))
	for _, e := range l.Entries {
		if e.Type == TypeFile {
			files = append(files, e)
		}
	}
	return files
}

// Config carries the per-call options recognized by adapters. A nil *Config
// is equivalent to the zero value.
type Config struct {
	// Visibility controls the adapter-level ACL applied on write.
	Visibility Visibility `json:"visibility,omitempty"`

	// MimeType overrides auto-detection for the written content.
	MimeType string `json:"mimetype,omitempty"`

	// Size declares the content length upfront for stream writes where the
	// adapter cannot learn it any other way. Zero means unknown.
	Size int64 `json:"size,omitempty"`

	// Timestamp overrides the last-modified time where the backend allows it.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Overwrite permits rename and copy to replace an existing destination.
	Overwrite bool `json:"overwrite,omitempty"`

	// DirAttributes is extra metadata attached when creating a directory.
	// Adapters without a metadata channel for directories discard it.
	DirAttributes map[string]string `json:"directory_attributes,omitempty"`
}

// CacheStats represents metadata cache performance statistics.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
	Listings  int    `json:"listings"`
}
