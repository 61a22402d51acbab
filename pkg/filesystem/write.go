package filesystem

import (
	"context"
	"io"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// Write creates or overwrites the file at path. It is the destructive
// overwrite-or-create primitive: it never fails because the target exists.
func (f *Filesystem) Write(ctx context.Context, path string, contents []byte, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("write")
	info, err := f.write(ctx, "write", path, contents, opts, f.adapter.Write)
	done(err)
	return info, err
}

// Update overwrites the file at path; it fails with FILE_NOT_FOUND when no
// entry exists there.
func (f *Filesystem) Update(ctx context.Context, path string, contents []byte, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("update")
	info, err := f.update(ctx, "update", path, contents, opts, f.adapter.Update)
	done(err)
	return info, err
}

// Put writes if the target is absent and updates if it is present. The
// existence check immediately precedes the adapter call; the check-then-act
// window is an accepted non-atomic policy since most backends expose no
// uniform conditional-write primitive.
func (f *Filesystem) Put(ctx context.Context, path string, contents []byte, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("put")
	p, cfg, err := f.prepareWrite(path, opts, contents)
	if err != nil {
		done(err)
		return nil, err
	}

	exists, err := f.exists(ctx, "put", p)
	if err != nil {
		done(err)
		return nil, err
	}

	var info *types.FileInfo
	if exists {
		info, err = f.adapter.Update(ctx, p, contents, cfg)
	} else {
		info, err = f.adapter.Write(ctx, p, contents, cfg)
	}
	if err != nil {
		err = fserrors.WrapAdapter("put", p, err)
		done(err)
		return nil, err
	}
	f.commitWrite(*info)
	done(nil)
	return info, nil
}

// WriteStream creates or overwrites the file at path from a stream. The
// reader is consumed but not closed.
func (f *Filesystem) WriteStream(ctx context.Context, path string, r io.Reader, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("write_stream")
	info, err := f.writeStream(ctx, "write_stream", path, r, opts, f.adapter.WriteStream)
	done(err)
	return info, err
}

// UpdateStream overwrites an existing file from a stream; it fails with
// FILE_NOT_FOUND when no entry exists at path.
func (f *Filesystem) UpdateStream(ctx context.Context, path string, r io.Reader, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("update_stream")
	p, cfg, err := f.prepareStreamWrite(path, opts)
	if err != nil {
		done(err)
		return nil, err
	}

	exists, err := f.exists(ctx, "update_stream", p)
	if err != nil {
		done(err)
		return nil, err
	}
	if !exists {
		err = fserrors.FileNotFound("update_stream", p)
		done(err)
		return nil, err
	}

	info, err := f.adapter.UpdateStream(ctx, p, r, cfg)
	if err != nil {
		err = fserrors.WrapAdapter("update_stream", p, err)
		done(err)
		return nil, err
	}
	f.commitWrite(*info)
	done(nil)
	return info, nil
}

// PutStream writes from a stream if the target is absent and updates it if
// present, with the same race window as Put.
func (f *Filesystem) PutStream(ctx context.Context, path string, r io.Reader, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("put_stream")
	p, cfg, err := f.prepareStreamWrite(path, opts)
	if err != nil {
		done(err)
		return nil, err
	}

	exists, err := f.exists(ctx, "put_stream", p)
	if err != nil {
		done(err)
		return nil, err
	}

	var info *types.FileInfo
	if exists {
		info, err = f.adapter.UpdateStream(ctx, p, r, cfg)
	} else {
		info, err = f.adapter.WriteStream(ctx, p, r, cfg)
	}
	if err != nil {
		err = fserrors.WrapAdapter("put_stream", p, err)
		done(err)
		return nil, err
	}
	f.commitWrite(*info)
	done(nil)
	return info, nil
}

// Rename moves an entry. It fails with FILE_EXISTS when the destination
// already exists, unless the "overwrite" option is set.
func (f *Filesystem) Rename(ctx context.Context, path, newPath string, opts map[string]interface{}) error {
	done := f.track("rename")
	err := f.relocate(ctx, "rename", path, newPath, opts, f.adapter.Rename, true)
	done(err)
	return err
}

// Copy duplicates the file at path to newPath. It fails with FILE_EXISTS
// when the destination already exists, unless the "overwrite" option is set.
func (f *Filesystem) Copy(ctx context.Context, path, newPath string, opts map[string]interface{}) error {
	done := f.track("copy")
	err := f.relocate(ctx, "copy", path, newPath, opts, f.adapter.Copy, false)
	done(err)
	return err
}

// Delete removes the file at path.
func (f *Filesystem) Delete(ctx context.Context, path string) error {
	done := f.track("delete")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return err
	}

	if err := f.adapter.Delete(ctx, p); err != nil {
		err = fserrors.WrapAdapter("delete", p, err)
		done(err)
		return err
	}
	f.cache.Invalidate(p)
	done(nil)
	return nil
}

// DeleteDir removes the directory at path and everything beneath it. The
// root directory cannot be deleted.
func (f *Filesystem) DeleteDir(ctx context.Context, path string) error {
	done := f.track("delete_dir")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return err
	}
	if p == "" {
		err = fserrors.InvalidPath(path, "cannot delete the root directory")
		done(err)
		return err
	}

	if err := f.adapter.DeleteDir(ctx, p); err != nil {
		err = fserrors.WrapAdapter("delete_dir", p, err)
		done(err)
		return err
	}
	f.cache.InvalidatePrefix(p)
	done(nil)
	return nil
}

// CreateDir creates the directory at path, including missing parents.
func (f *Filesystem) CreateDir(ctx context.Context, path string, opts map[string]interface{}) (*types.FileInfo, error) {
	done := f.track("create_dir")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return nil, err
	}
	cfg, err := f.resolveConfig(opts)
	if err != nil {
		done(err)
		return nil, err
	}

	info, err := f.adapter.CreateDir(ctx, p, cfg)
	if err != nil {
		err = fserrors.WrapAdapter("create_dir", p, err)
		done(err)
		return nil, err
	}
	f.commitWrite(*info)
	done(nil)
	return info, nil
}

// SetVisibility changes the access classification of an existing entry.
func (f *Filesystem) SetVisibility(ctx context.Context, path string, visibility types.Visibility) error {
	done := f.track("set_visibility")
	p, err := normalize(path)
	if err != nil {
		done(err)
		return err
	}
	if !visibility.Valid() {
		err = fserrors.InvalidArgument("visibility must be public or private")
		done(err)
		return err
	}

	if err := f.adapter.SetVisibility(ctx, p, visibility); err != nil {
		err = fserrors.WrapAdapter("set_visibility", p, err)
		done(err)
		return err
	}

	// Refresh the cached record in place when one exists; listings holding
	// the stale visibility are dropped either way.
	cached, ok := f.cache.Get(p)
	f.cache.Invalidate(p)
	if ok {
		cached.Visibility = visibility
		f.cache.Put(*cached)
	}
	done(nil)
	return nil
}

// write implements Write; the adapter call is injected so Update can share
// the same shape.
func (f *Filesystem) write(
	ctx context.Context,
	op, path string,
	contents []byte,
	opts map[string]interface{},
	call func(context.Context, string, []byte, *types.Config) (*types.FileInfo, error),
) (*types.FileInfo, error) {
	p, cfg, err := f.prepareWrite(path, opts, contents)
	if err != nil {
		return nil, err
	}

	info, err := call(ctx, p, contents, cfg)
	if err != nil {
		return nil, fserrors.WrapAdapter(op, p, err)
	}
	f.commitWrite(*info)
	return info, nil
}

func (f *Filesystem) update(
	ctx context.Context,
	op, path string,
	contents []byte,
	opts map[string]interface{},
	call func(context.Context, string, []byte, *types.Config) (*types.FileInfo, error),
) (*types.FileInfo, error) {
	p, cfg, err := f.prepareWrite(path, opts, contents)
	if err != nil {
		return nil, err
	}

	exists, err := f.exists(ctx, op, p)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fserrors.FileNotFound(op, p)
	}

	info, err := call(ctx, p, contents, cfg)
	if err != nil {
		return nil, fserrors.WrapAdapter(op, p, err)
	}
	f.commitWrite(*info)
	return info, nil
}

func (f *Filesystem) writeStream(
	ctx context.Context,
	op, path string,
	r io.Reader,
	opts map[string]interface{},
	call func(context.Context, string, io.Reader, *types.Config) (*types.FileInfo, error),
) (*types.FileInfo, error) {
	p, cfg, err := f.prepareStreamWrite(path, opts)
	if err != nil {
		return nil, err
	}

	info, err := call(ctx, p, r, cfg)
	if err != nil {
		return nil, fserrors.WrapAdapter(op, p, err)
	}
	f.commitWrite(*info)
	return info, nil
}

func (f *Filesystem) relocate(
	ctx context.Context,
	op, path, newPath string,
	opts map[string]interface{},
	call func(context.Context, string, string) error,
	moveSource bool,
) error {
	from, err := normalize(path)
	if err != nil {
		return err
	}
	to, err := normalize(newPath)
	if err != nil {
		return err
	}
	cfg, err := f.resolveConfig(opts)
	if err != nil {
		return err
	}

	if !cfg.Overwrite {
		exists, err := f.exists(ctx, op, to)
		if err != nil {
			return err
		}
		if exists {
			return fserrors.FileExists(op, to)
		}
	}

	if err := call(ctx, from, to); err != nil {
		return fserrors.WrapAdapter(op, from, err)
	}

	if moveSource {
		f.cache.InvalidatePrefix(from)
	}
	f.cache.InvalidatePrefix(to)
	return nil
}

// prepareWrite normalizes the path, resolves options and fills in a detected
// content type when none was supplied.
func (f *Filesystem) prepareWrite(path string, opts map[string]interface{}, contents []byte) (string, *types.Config, error) {
	p, err := normalize(path)
	if err != nil {
		return "", nil, err
	}
	cfg, err := f.resolveConfig(opts)
	if err != nil {
		return "", nil, err
	}
	if cfg.MimeType == "" && f.detect != nil {
		cfg.MimeType = f.detect(p, contents)
	}
	return p, cfg, nil
}

// prepareStreamWrite is prepareWrite without content to sniff; detection
// falls back to the path extension alone.
func (f *Filesystem) prepareStreamWrite(path string, opts map[string]interface{}) (string, *types.Config, error) {
	p, err := normalize(path)
	if err != nil {
		return "", nil, err
	}
	cfg, err := f.resolveConfig(opts)
	if err != nil {
		return "", nil, err
	}
	if cfg.MimeType == "" && f.detect != nil {
		cfg.MimeType = f.detect(p, nil)
	}
	return p, cfg, nil
}

// exists answers an existence check for an already-normalized path using the
// cache-or-adapter discipline of Has. Adapter failures are attributed to op,
// the operation that needed the check.
func (f *Filesystem) exists(ctx context.Context, op, p string) (bool, error) {
	if _, ok := f.cache.Get(p); ok {
		return true, nil
	}
	exists, err := f.adapter.Has(ctx, p)
	if err != nil {
		return false, fserrors.WrapAdapter(op, p, err)
	}
	return exists, nil
}

// commitWrite applies cache effects after a successful mutation: ancestor
// listings are dropped and the fresh record stored. Mutations never touch
// the cache before adapter success, so failed writes cannot poison it.
func (f *Filesystem) commitWrite(info types.FileInfo) {
	f.cache.Invalidate(info.Path)
	f.cache.Put(info)
}
