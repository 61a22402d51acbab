// Package billyfs implements the adapter contract over any
// billy.Filesystem, which makes every go-billy backend usable behind the
// facade: memfs for in-memory storage and tests, osfs for local disk, or a
// chroot of either.
//
// Visibility requires the optional billy.Change capability; backends without
// it (memfs among them) report UNSUPPORTED for visibility changes.
package billyfs

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/driftfs/driftfs/internal/mimetype"
	"github.com/driftfs/driftfs/internal/pathutil"
	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

const (
	filePermPublic  os.FileMode = 0o644
	filePermPrivate os.FileMode = 0o600
	dirPermPublic   os.FileMode = 0o755
	dirPermPrivate  os.FileMode = 0o700
)

// Adapter is a billy.Filesystem-backed implementation of types.Adapter.
type Adapter struct {
	fs     billy.Filesystem
	logger *zap.Logger
}

var _ types.Adapter = (*Adapter)(nil)

// Option configures the adapter.
type Option func(*Adapter)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an adapter over bfs.
func New(bfs billy.Filesystem, opts ...Option) *Adapter {
	a := &Adapter{fs: bfs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewMemory creates an adapter over a fresh in-memory filesystem.
func NewMemory(opts ...Option) *Adapter {
	return New(memfs.New(), opts...)
}

// NewLocal creates an adapter over the local disk rooted at dir.
func NewLocal(dir string, opts ...Option) *Adapter {
	return New(osfs.New(dir), opts...)
}

// Unwrap returns the underlying billy.Filesystem.
func (a *Adapter) Unwrap() billy.Filesystem { return a.fs }

// Has implements types.Adapter. Backends with implicit directories (memfs)
// only know a directory once something exists beneath it.
func (a *Adapter) Has(ctx context.Context, path string) (bool, error) {
	if _, err := a.fs.Stat(path); err == nil {
		return true, nil
	} else if !os.IsNotExist(err) {
		return false, fserrors.WrapAdapter("has", path, err)
	}
	// Implicit directory check.
	if entries, err := a.fs.ReadDir(path); err == nil && len(entries) > 0 {
		return true, nil
	}
	return false, nil
}

// Read implements types.Adapter.
func (a *Adapter) Read(ctx context.Context, path string) ([]byte, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("read", path)
		}
		return nil, fserrors.WrapAdapter("read", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fserrors.WrapAdapter("read", path, err)
	}
	return data, nil
}

// ReadStream implements types.Adapter.
func (a *Adapter) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("read_stream", path)
		}
		return nil, fserrors.WrapAdapter("read_stream", path, err)
	}
	return f, nil
}

// Write implements types.Adapter.
func (a *Adapter) Write(ctx context.Context, path string, contents []byte, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm(cfg.Visibility))
	if err != nil {
		return nil, fserrors.WrapAdapter("write", path, err)
	}
	_, err = f.Write(contents)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fserrors.WrapAdapter("write", path, err)
	}
	return writtenInfo(path, int64(len(contents)), cfg), nil
}

// WriteStream implements types.Adapter.
func (a *Adapter) WriteStream(ctx context.Context, path string, r io.Reader, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm(cfg.Visibility))
	if err != nil {
		return nil, fserrors.WrapAdapter("write_stream", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fserrors.WrapAdapter("write_stream", path, err)
	}
	return writtenInfo(path, n, cfg), nil
}

// Update implements types.Adapter.
func (a *Adapter) Update(ctx context.Context, path string, contents []byte, cfg *types.Config) (*types.FileInfo, error) {
	if err := a.requireFile("update", path); err != nil {
		return nil, err
	}
	return a.Write(ctx, path, contents, cfg)
}

// UpdateStream implements types.Adapter.
func (a *Adapter) UpdateStream(ctx context.Context, path string, r io.Reader, cfg *types.Config) (*types.FileInfo, error) {
	if err := a.requireFile("update_stream", path); err != nil {
		return nil, err
	}
	return a.WriteStream(ctx, path, r, cfg)
}

// Rename implements types.Adapter.
func (a *Adapter) Rename(ctx context.Context, path, newPath string) error {
	if _, err := a.fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("rename", path)
		}
		return fserrors.WrapAdapter("rename", path, err)
	}
	if err := a.fs.Rename(path, newPath); err != nil {
		return fserrors.WrapAdapter("rename", path, err)
	}
	return nil
}

// Copy implements types.Adapter.
func (a *Adapter) Copy(ctx context.Context, path, newPath string) error {
	data, err := a.Read(ctx, path)
	if err != nil {
		return err
	}
	info, err := a.fs.Stat(path)
	if err != nil {
		return fserrors.WrapAdapter("copy", path, err)
	}
	if info.IsDir() {
		return fserrors.Unsupported("copy", "copying directories is not supported")
	}
	if _, err := a.Write(ctx, newPath, data, &types.Config{
		Visibility: visibilityFromMode(info.Mode(), false),
	}); err != nil {
		return err
	}
	return nil
}

// Delete implements types.Adapter.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("delete", path)
		}
		return fserrors.WrapAdapter("delete", path, err)
	}
	if info.IsDir() {
		return fserrors.Unsupported("delete", "path is a directory")
	}
	if err := a.fs.Remove(path); err != nil {
		return fserrors.WrapAdapter("delete", path, err)
	}
	return nil
}

// DeleteDir implements types.Adapter. Billy has no recursive removal, so the
// tree is walked bottom-up (same approach as other go-billy consumers).
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	exists, err := a.Has(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fserrors.FileNotFound("delete_dir", path)
	}
	if err := a.removeAll(path); err != nil {
		return fserrors.WrapAdapter("delete_dir", path, err)
	}
	return nil
}

// CreateDir implements types.Adapter. Directory attributes have no billy
// representation and are discarded.
func (a *Adapter) CreateDir(ctx context.Context, path string, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	if err := a.fs.MkdirAll(path, dirPerm(cfg.Visibility)); err != nil {
		return nil, fserrors.WrapAdapter("create_dir", path, err)
	}
	return &types.FileInfo{
		Path:       path,
		Type:       types.TypeDir,
		Timestamp:  time.Now(),
		Visibility: orPublic(cfg.Visibility),
	}, nil
}

// SetVisibility implements types.Adapter. It requires the optional
// billy.Change capability.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility types.Visibility) error {
	ch, ok := a.fs.(billy.Change)
	if !ok {
		a.logger.Debug("backend lacks permission support", zap.String("path", path))
		return fserrors.Unsupported("set_visibility", "backend does not support permission changes")
	}

	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("set_visibility", path)
		}
		return fserrors.WrapAdapter("set_visibility", path, err)
	}

	perm := filePerm(visibility)
	if info.IsDir() {
		perm = dirPerm(visibility)
	}
	if err := ch.Chmod(path, perm); err != nil {
		return fserrors.WrapAdapter("set_visibility", path, err)
	}
	return nil
}

// GetMetadata implements types.Adapter.
func (a *Adapter) GetMetadata(ctx context.Context, path string) (*types.FileInfo, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("get_metadata", path)
		}
		return nil, fserrors.WrapAdapter("get_metadata", path, err)
	}
	return infoFor(path, info), nil
}

// GetSize implements types.Adapter.
func (a *Adapter) GetSize(ctx context.Context, path string) (int64, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// GetMimeType implements types.Adapter.
func (a *Adapter) GetMimeType(ctx context.Context, path string) (string, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fserrors.FileNotFound("get_mimetype", path)
		}
		return "", fserrors.WrapAdapter("get_mimetype", path, err)
	}
	defer f.Close()

	head := make([]byte, mimetype.SniffLen)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", fserrors.WrapAdapter("get_mimetype", path, err)
	}
	return mimetype.Detect(path, head[:n]), nil
}

// GetTimestamp implements types.Adapter.
func (a *Adapter) GetTimestamp(ctx context.Context, path string) (time.Time, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return info.Timestamp, nil
}

// GetVisibility implements types.Adapter.
func (a *Adapter) GetVisibility(ctx context.Context, path string) (types.Visibility, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return "", err
	}
	return info.Visibility, nil
}

// ListContents implements types.Adapter.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]types.FileInfo, error) {
	entries, err := a.fs.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("list_contents", path)
		}
		return nil, fserrors.WrapAdapter("list_contents", path, err)
	}

	var result []types.FileInfo
	for _, entry := range entries {
		child := pathutil.Join(path, entry.Name())
		result = append(result, *infoFor(child, entry))
		if recursive && entry.IsDir() {
			sub, err := a.ListContents(ctx, child, true)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		}
	}
	return result, nil
}

func (a *Adapter) removeAll(path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Implicit directory: remove children found via ReadDir.
			info = nil
		} else {
			return err
		}
	}
	if info != nil && !info.IsDir() {
		return a.fs.Remove(path)
	}

	entries, err := a.fs.ReadDir(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, entry := range entries {
		if err := a.removeAll(pathutil.Join(path, entry.Name())); err != nil {
			return err
		}
	}
	if info != nil {
		if err := a.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (a *Adapter) requireFile(op, path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound(op, path)
		}
		return fserrors.WrapAdapter(op, path, err)
	}
	if info.IsDir() {
		return fserrors.Unsupported(op, "path is a directory")
	}
	return nil
}

func infoFor(path string, info os.FileInfo) *types.FileInfo {
	fi := &types.FileInfo{
		Path:       path,
		Type:       types.TypeFile,
		Timestamp:  info.ModTime(),
		Visibility: visibilityFromMode(info.Mode(), info.IsDir()),
	}
	if info.IsDir() {
		fi.Type = types.TypeDir
	} else {
		fi.Size = info.Size()
	}
	return fi
}

func writtenInfo(path string, size int64, cfg *types.Config) *types.FileInfo {
	ts := cfg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if cfg.Size > 0 {
		size = cfg.Size
	}
	return &types.FileInfo{
		Path:       path,
		Type:       types.TypeFile,
		Size:       size,
		Timestamp:  ts,
		Visibility: orPublic(cfg.Visibility),
		MimeType:   cfg.MimeType,
	}
}

func orDefault(cfg *types.Config) *types.Config {
	if cfg == nil {
		return &types.Config{}
	}
	return cfg
}

func orPublic(v types.Visibility) types.Visibility {
	if v == "" {
		return types.VisibilityPublic
	}
	return v
}

func filePerm(v types.Visibility) os.FileMode {
	if v == types.VisibilityPrivate {
		return filePermPrivate
	}
	return filePermPublic
}

func dirPerm(v types.Visibility) os.FileMode {
	if v == types.VisibilityPrivate {
		return dirPermPrivate
	}
	return dirPermPublic
}

func visibilityFromMode(mode os.FileMode, isDir bool) types.Visibility {
	if isDir {
		if mode.Perm()&0o045 != 0 {
			return types.VisibilityPublic
		}
		return types.VisibilityPrivate
	}
	if mode.Perm()&0o044 != 0 {
		return types.VisibilityPublic
	}
	return types.VisibilityPrivate
}
