package filesystem

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// Has reports whether an entry exists at path. A cached record counts as
// positive knowledge; a cache miss always reaches the adapter, since absence
// of an entry is not evidence of absence of the file.
func (f *Filesystem) Has(ctx context.Context, path string) (bool, error) {
	done := f.track("has")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return false, err
	}

	if _, ok := f.cache.Get(p); ok {
		f.cacheHit("has")
		done(nil)
		return true, nil
	}
	f.cacheMiss("has")

	exists, err := f.adapter.Has(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("has", p, err)
		done(err)
		return false, err
	}
	done(nil)
	return exists, nil
}

// Read returns the full contents of the file at path.
func (f *Filesystem) Read(ctx context.Context, path string) ([]byte, error) {
	done := f.track("read")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}

	contents, err := f.adapter.Read(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("read", p, err)
		done(err)
		return nil, err
	}
	done(nil)
	return contents, nil
}

// ReadStream returns a stream over the contents of the file at path. The
// caller owns the stream and must close it on every exit path.
func (f *Filesystem) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	done := f.track("read_stream")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}

	stream, err := f.adapter.ReadStream(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("read_stream", p, err)
		done(err)
		return nil, err
	}
	done(nil)
	return stream, nil
}

// ReadAndDelete reads the file at path and then deletes it. When the read
// fails the delete is never attempted. When the delete fails after a
// successful read, the already-read contents are returned together with a
// non-nil error describing the failed delete: the call counts as a failure
// because the side effect promised by the name did not happen, but the
// contents remain recoverable by the caller.
func (f *Filesystem) ReadAndDelete(ctx context.Context, path string) ([]byte, error) {
	done := f.track("read_and_delete")
	contents, err := f.Read(ctx, path)
	if err != nil {
		done(err)
		return nil, err
	}

	if err := f.Delete(ctx, path); err != nil {
		f.logger.Warn("read succeeded but delete failed; file still present",
			zap.String("path", path), zap.Error(err))
		done(err)
		return contents, err
	}
	done(nil)
	return contents, nil
}

// GetMetadata returns the metadata record for path, from cache when present.
func (f *Filesystem) GetMetadata(ctx context.Context, path string) (*types.FileInfo, error) {
	done := f.track("get_metadata")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}
	info, err := f.metadataFor(ctx, "get_metadata", p)
	done(err)
	return info, err
}

// GetSize returns the size in bytes of the file at path. Size is undefined
// for directories.
func (f *Filesystem) GetSize(ctx context.Context, path string) (int64, error) {
	done := f.track("get_size")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return 0, err
	}

	info, err := f.metadataFor(ctx, "get_size", p)
	if err != nil {
		done(err)
		return 0, err
	}
	if info.IsDir() {
		err = fserrors.InvalidArgument("size is undefined for directories")
		done(err)
		return 0, err
	}
	done(nil)
	return info.Size, nil
}

// GetMimeType returns the content type of the file at path. When the cached
// record lacks one the adapter is asked once and the record refreshed.
func (f *Filesystem) GetMimeType(ctx context.Context, path string) (string, error) {
	done := f.track("get_mimetype")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return "", err
	}

	info, err := f.metadataFor(ctx, "get_mimetype", p)
	if err != nil {
		done(err)
		return "", err
	}
	if info.IsDir() {
		err = fserrors.InvalidArgument("mimetype is undefined for directories")
		done(err)
		return "", err
	}
	if info.MimeType != "" {
		done(nil)
		return info.MimeType, nil
	}

	mt, err := f.adapter.GetMimeType(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("get_mimetype", p, err)
		done(err)
		return "", err
	}
	info.MimeType = mt
	f.cache.Put(*info)
	done(nil)
	return mt, nil
}

// GetTimestamp returns the last-modified time of the entry at path.
func (f *Filesystem) GetTimestamp(ctx context.Context, path string) (time.Time, error) {
	done := f.track("get_timestamp")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return time.Time{}, err
	}

	info, err := f.metadataFor(ctx, "get_timestamp", p)
	if err != nil {
		done(err)
		return time.Time{}, err
	}
	if !info.Timestamp.IsZero() {
		done(nil)
		return info.Timestamp, nil
	}

	ts, err := f.adapter.GetTimestamp(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("get_timestamp", p, err)
		done(err)
		return time.Time{}, err
	}
	info.Timestamp = ts
	f.cache.Put(*info)
	done(nil)
	return ts, nil
}

// GetVisibility returns the access classification of the entry at path.
func (f *Filesystem) GetVisibility(ctx context.Context, path string) (types.Visibility, error) {
	done := f.track("get_visibility")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return "", err
	}

	info, err := f.metadataFor(ctx, "get_visibility", p)
	if err != nil {
		done(err)
		return "", err
	}
	if info.Visibility != "" {
		done(nil)
		return info.Visibility, nil
	}

	v, err := f.adapter.GetVisibility(ctx, p)
	if err != nil {
		err = fserrors.WrapAdapter("get_visibility", p, err)
		done(err)
		return "", err
	}
	info.Visibility = v
	f.cache.Put(*info)
	done(nil)
	return v, nil
}

// metadataFor fetches the complete record for a normalized path, consulting
// the cache first and populating it on adapter success. The cache always
// stores complete records, so attribute-level getters can be satisfied from
// a record populated by any earlier call.
func (f *Filesystem) metadataFor(ctx context.Context, op, p string) (*types.FileInfo, error) {
	if info, ok := f.cache.Get(p); ok {
		f.cacheHit(op)
		return info, nil
	}
	f.cacheMiss(op)

	info, err := f.adapter.GetMetadata(ctx, p)
	if err != nil {
		return nil, fserrors.WrapAdapter(op, p, err)
	}
	f.cache.Put(*info)
	result := *info
	return &result, nil
}
