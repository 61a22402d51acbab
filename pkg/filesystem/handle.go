package filesystem

import (
	"context"
	"io"

	"github.com/driftfs/driftfs/pkg/types"
)

// Handle is a convenience wrapper around one existing entry, returned by
// Get. Its operations delegate to the facade, so the metadata cache stays
// coherent no matter which surface the caller uses.
type Handle struct {
	fs   *Filesystem
	info types.FileInfo
}

// Get returns a handle for the entry at path, or FILE_NOT_FOUND.
func (f *Filesystem) Get(ctx context.Context, path string) (*Handle, error) {
	info, err := f.GetMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Handle{fs: f, info: *info}, nil
}

// Path returns the normalized path of the entry.
func (h *Handle) Path() string { return h.info.Path }

// IsFile reports whether the handle describes a file.
func (h *Handle) IsFile() bool { return h.info.Type == types.TypeFile }

// IsDir reports whether the handle describes a directory.
func (h *Handle) IsDir() bool { return h.info.IsDir() }

// Metadata returns the record captured when the handle was created.
func (h *Handle) Metadata() types.FileInfo { return h.info }

// Read returns the full contents of the file behind the handle.
func (h *Handle) Read(ctx context.Context) ([]byte, error) {
	return h.fs.Read(ctx, h.info.Path)
}

// ReadStream streams the contents of the file behind the handle.
func (h *Handle) ReadStream(ctx context.Context) (io.ReadCloser, error) {
	return h.fs.ReadStream(ctx, h.info.Path)
}

// Delete removes the entry; directories are removed recursively.
func (h *Handle) Delete(ctx context.Context) error {
	if h.IsDir() {
		return h.fs.DeleteDir(ctx, h.info.Path)
	}
	return h.fs.Delete(ctx, h.info.Path)
}

// Rename moves the entry and updates the handle's path on success.
func (h *Handle) Rename(ctx context.Context, newPath string, opts map[string]interface{}) error {
	if err := h.fs.Rename(ctx, h.info.Path, newPath, opts); err != nil {
		return err
	}
	p, err := normalize(newPath)
	if err == nil {
		h.info.Path = p
	}
	return nil
}

// Copy duplicates the file behind the handle to newPath.
func (h *Handle) Copy(ctx context.Context, newPath string, opts map[string]interface{}) error {
	return h.fs.Copy(ctx, h.info.Path, newPath, opts)
}
