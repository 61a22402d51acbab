package types

import (
	"context"
	"io"
	"time"
)

// Adapter defines the capability contract every storage backend driver must
// satisfy. Backends are interchangeable implementations selected at
// construction time; the facade never inspects their concrete type.
//
// Paths handed to an adapter are already normalized (root-relative, forward
// slashes, no traversal). All blocking calls take a context. Streams returned
// by ReadStream are owned by the caller and must be closed on every exit path.
type Adapter interface {
	// Has reports whether an entry exists at path. A false result is a valid
	// answer, not an error; the error return is reserved for backend failures.
	Has(ctx context.Context, path string) (bool, error)

	// Read returns the full contents of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// ReadStream returns a stream over the contents of the file at path.
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites the file at path.
	Write(ctx context.Context, path string, contents []byte, cfg *Config) (*FileInfo, error)

	// WriteStream creates or overwrites the file at path from a stream.
	// The adapter consumes the reader but does not close it.
	WriteStream(ctx context.Context, path string, r io.Reader, cfg *Config) (*FileInfo, error)

	// Update overwrites an existing file; it fails when path does not exist.
	Update(ctx context.Context, path string, contents []byte, cfg *Config) (*FileInfo, error)

	// UpdateStream overwrites an existing file from a stream.
	UpdateStream(ctx context.Context, path string, r io.Reader, cfg *Config) (*FileInfo, error)

	// Rename moves an entry to newPath.
	Rename(ctx context.Context, path, newPath string) error

	// Copy duplicates the file at path to newPath.
	Copy(ctx context.Context, path, newPath string) error

	// Delete removes the file at path; it fails when path does not exist.
	Delete(ctx context.Context, path string) error

	// DeleteDir removes the directory at path and everything beneath it.
	DeleteDir(ctx context.Context, path string) error

	// CreateDir creates the directory at path, including missing parents.
	CreateDir(ctx context.Context, path string, cfg *Config) (*FileInfo, error)

	// SetVisibility changes the access classification of an existing entry.
	SetVisibility(ctx context.Context, path string, visibility Visibility) error

	// GetMetadata returns the metadata record for path.
	GetMetadata(ctx context.Context, path string) (*FileInfo, error)

	// GetSize returns the size in bytes of the file at path.
	GetSize(ctx context.Context, path string) (int64, error)

	// GetMimeType returns the content type of the file at path.
	GetMimeType(ctx context.Context, path string) (string, error)

	// GetTimestamp returns the last-modified time of the entry at path.
	GetTimestamp(ctx context.Context, path string) (time.Time, error)

	// GetVisibility returns the access classification of the entry at path.
	GetVisibility(ctx context.Context, path string) (Visibility, error)

	// ListContents returns the entries of the directory at path. When
	// recursive is true the result includes all descendants.
	ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error)
}

// MetadataCache stores last-known metadata records and directory listings
// keyed by normalized path. Absence of an entry is never evidence the path
// itself is absent; a miss always triggers an adapter call.
//
// Implementations must be safe for concurrent use.
type MetadataCache interface {
	// Get returns the cached record for path, if any.
	Get(path string) (*FileInfo, bool)

	// GetListing returns the cached listing for the exact (dir, recursive)
	// key, if any.
	GetListing(dir string, recursive bool) (*Listing, bool)

	// Put overwrites the cached record for info.Path.
	Put(info FileInfo)

	// PutListing overwrites the cached listing for its (dir, recursive) key.
	// It does not populate per-entry records; callers choose whether to.
	PutListing(listing Listing)

	// Invalidate removes the record for path and every listing whose
	// directory is path or an ancestor of path.
	Invalidate(path string)

	// InvalidatePrefix is Invalidate extended to every cached record at or
	// beneath path, for mutations that affect a whole subtree.
	InvalidatePrefix(path string)

	// InvalidateAll clears the cache.
	InvalidateAll()

	// Stats returns hit and eviction counters.
	Stats() CacheStats
}

// MetricsRecorder receives operation-level observations from the facade.
type MetricsRecorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	RecordCacheHit(operation string)
	RecordCacheMiss(operation string)
}

// MimeDetector maps a path and an optional content prefix to a MIME type
// string. head may be nil when only the path is available.
type MimeDetector func(path string, head []byte) string
