package filesystem

import (
	"context"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// Metadata attribute names recognized by GetWithMetadata and ListWith.
const (
	AttrPath       = "path"
	AttrType       = "type"
	AttrSize       = "size"
	AttrMimeType   = "mimetype"
	AttrTimestamp  = "timestamp"
	AttrVisibility = "visibility"
)

var recognizedAttrs = map[string]struct{}{
	AttrPath:       {},
	AttrType:       {},
	AttrSize:       {},
	AttrMimeType:   {},
	AttrTimestamp:  {},
	AttrVisibility: {},
}

// ListContents returns the listing of the directory at path. The cached
// listing for the exact (path, recursive) key is served when present; on a
// miss the adapter result populates both the listing cache and, by default,
// the per-entry record cache.
func (f *Filesystem) ListContents(ctx context.Context, path string, recursive bool) (*types.Listing, error) {
	done := f.track("list_contents")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}

	if listing, ok := f.cache.GetListing(p, recursive); ok {
		f.cacheHit("list_contents")
		done(nil)
		return listing, nil
	}
	f.cacheMiss("list_contents")

	entries, err := f.adapter.ListContents(ctx, p, recursive)
	if err != nil {
		err = fserrors.WrapAdapter("list_contents", p, err)
		done(err)
		return nil, err
	}

	listing := types.Listing{Directory: p, Recursive: recursive, Entries: entries}
	f.cache.PutListing(listing)
	// Trade memory for fewer subsequent lookups: each record becomes
	// individually addressable by the metadata getters.
	for _, e := range entries {
		f.cache.Put(e)
	}
	done(nil)
	return &listing, nil
}

// ListFiles is ListContents filtered to file entries.
func (f *Filesystem) ListFiles(ctx context.Context, path string, recursive bool) ([]types.FileInfo, error) {
	listing, err := f.ListContents(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	return listing.Files(), nil
}

// ListPaths is ListContents projected to path strings.
func (f *Filesystem) ListPaths(ctx context.Context, path string, recursive bool) ([]string, error) {
	listing, err := f.ListContents(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	return listing.Paths(), nil
}

// ListWith returns the listing of the directory at path with the requested
// metadata attributes guaranteed present on every entry, fetched lazily per
// entry when the adapter listing did not already supply them.
func (f *Filesystem) ListWith(ctx context.Context, keys []string, path string, recursive bool) (*types.Listing, error) {
	done := f.track("list_with")
	if err := validateAttrs(keys); err != nil {
		done(err)
		return nil, err
	}

	listing, err := f.ListContents(ctx, path, recursive)
	if err != nil {
		done(err)
		return nil, err
	}

	enriched := make([]types.FileInfo, len(listing.Entries))
	for i, entry := range listing.Entries {
		e := entry
		for _, key := range keys {
			if err := f.fillAttr(ctx, &e, key); err != nil {
				done(err)
				return nil, err
			}
		}
		f.cache.Put(e)
		enriched[i] = e
	}

	result := types.Listing{Directory: listing.Directory, Recursive: recursive, Entries: enriched}
	done(nil)
	return &result, nil
}

// GetWithMetadata returns a record containing exactly the requested
// attribute subset for path, computed from one full-metadata fetch. It fails
// with INVALID_ARGUMENT when any key is not a recognized attribute name.
func (f *Filesystem) GetWithMetadata(ctx context.Context, path string, keys []string) (map[string]interface{}, error) {
	done := f.track("get_with_metadata")
	if err := validateAttrs(keys); err != nil {
		done(err)
		return nil, err
	}
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}

	info, err := f.metadataFor(ctx, "get_with_metadata", p)
	if err != nil {
		done(err)
		return nil, err
	}
	for _, key := range keys {
		if err := f.fillAttr(ctx, info, key); err != nil {
			done(err)
			return nil, err
		}
	}
	f.cache.Put(*info)

	result := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		switch key {
		case AttrPath:
			result[AttrPath] = info.Path
		case AttrType:
			result[AttrType] = info.Type
		case AttrSize:
			result[AttrSize] = info.Size
		case AttrMimeType:
			result[AttrMimeType] = info.MimeType
		case AttrTimestamp:
			result[AttrTimestamp] = info.Timestamp
		case AttrVisibility:
			result[AttrVisibility] = info.Visibility
		}
	}
	done(nil)
	return result, nil
}

func validateAttrs(keys []string) error {
	for _, key := range keys {
		if _, ok := recognizedAttrs[key]; !ok {
			return fserrors.InvalidArgument("unrecognized metadata attribute: " + key)
		}
	}
	return nil
}

// fillAttr lazily completes one attribute on a record when the backend has
// not supplied it yet. Directory records never carry size or mimetype.
func (f *Filesystem) fillAttr(ctx context.Context, info *types.FileInfo, key string) error {
	switch key {
	case AttrMimeType:
		if info.MimeType != "" || info.IsDir() {
			return nil
		}
		mt, err := f.adapter.GetMimeType(ctx, info.Path)
		if err != nil {
			return fserrors.WrapAdapter("get_mimetype", info.Path, err)
		}
		info.MimeType = mt
	case AttrTimestamp:
		if !info.Timestamp.IsZero() {
			return nil
		}
		ts, err := f.adapter.GetTimestamp(ctx, info.Path)
		if err != nil {
			return fserrors.WrapAdapter("get_timestamp", info.Path, err)
		}
		info.Timestamp = ts
	case AttrVisibility:
		if info.Visibility != "" {
			return nil
		}
		v, err := f.adapter.GetVisibility(ctx, info.Path)
		if err != nil {
			return fserrors.WrapAdapter("get_visibility", info.Path, err)
		}
		info.Visibility = v
	}
	// path, type and size are always present on adapter records.
	return nil
}
