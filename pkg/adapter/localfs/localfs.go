// Package localfs implements the adapter contract against a root-jailed
// directory on the local disk. Visibility maps onto permission bits and
// writes go through a same-directory temp file plus rename, so readers never
// observe a partially written file.
package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
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

// Adapter is a local-disk implementation of types.Adapter.
type Adapter struct {
	root   string
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

// New creates an adapter rooted at dir, which must exist and be a directory.
func New(dir string, opts ...Option) (*Adapter, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fserrors.WrapAdapter("new", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fserrors.WrapAdapter("new", abs, err)
	}
	if !info.IsDir() {
		return nil, fserrors.Newf(fserrors.ErrCodeAdapterFailure, "root is not a directory: %s", abs)
	}

	a := &Adapter{root: abs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("local adapter ready", zap.String("root", a.root))
	return a, nil
}

// Root returns the absolute root directory of the jail.
func (a *Adapter) Root() string { return a.root }

func (a *Adapter) fullPath(p string) string {
	// Resolving ".." against the separator first keeps lexical traversal
	// inside the root even for callers that skip facade normalization.
	return filepath.Join(a.root, filepath.Join(string(filepath.Separator), filepath.FromSlash(p)))
}

// Has implements types.Adapter.
func (a *Adapter) Has(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(a.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fserrors.WrapAdapter("has", path, err)
	}
	return true, nil
}

// Read implements types.Adapter.
func (a *Adapter) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(a.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("read", path)
		}
		return nil, fserrors.WrapAdapter("read", path, err)
	}
	return data, nil
}

// ReadStream implements types.Adapter.
func (a *Adapter) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(a.fullPath(path))
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
	if err := a.writeAtomic(path, contents, filePerm(cfg.Visibility)); err != nil {
		return nil, err
	}
	return a.writtenInfo(path, int64(len(contents)), cfg), nil
}

// WriteStream implements types.Adapter.
func (a *Adapter) WriteStream(ctx context.Context, path string, r io.Reader, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	n, err := a.streamAtomic(path, r, filePerm(cfg.Visibility))
	if err != nil {
		return nil, err
	}
	return a.writtenInfo(path, n, cfg), nil
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
	if _, err := os.Stat(a.fullPath(path)); err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("rename", path)
		}
		return fserrors.WrapAdapter("rename", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(a.fullPath(newPath)), dirPermPublic); err != nil {
		return fserrors.WrapAdapter("rename", newPath, err)
	}
	if err := os.Rename(a.fullPath(path), a.fullPath(newPath)); err != nil {
		return fserrors.WrapAdapter("rename", path, err)
	}
	return nil
}

// Copy implements types.Adapter. Only files can be copied.
func (a *Adapter) Copy(ctx context.Context, path, newPath string) error {
	src, err := os.Open(a.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("copy", path)
		}
		return fserrors.WrapAdapter("copy", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fserrors.WrapAdapter("copy", path, err)
	}
	if info.IsDir() {
		return fserrors.Unsupported("copy", "copying directories is not supported")
	}

	if _, err := a.streamAtomic(newPath, src, info.Mode().Perm()); err != nil {
		return err
	}
	return nil
}

// Delete implements types.Adapter. Directories are rejected; DeleteDir
// handles them.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	full := a.fullPath(path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("delete", path)
		}
		return fserrors.WrapAdapter("delete", path, err)
	}
	if info.IsDir() {
		return fserrors.Unsupported("delete", "path is a directory")
	}
	if err := os.Remove(full); err != nil {
		return fserrors.WrapAdapter("delete", path, err)
	}
	return nil
}

// DeleteDir implements types.Adapter.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	full := a.fullPath(path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fserrors.FileNotFound("delete_dir", path)
		}
		return fserrors.WrapAdapter("delete_dir", path, err)
	}
	if !info.IsDir() {
		return fserrors.Unsupported("delete_dir", "path is not a directory")
	}
	if err := os.RemoveAll(full); err != nil {
		return fserrors.WrapAdapter("delete_dir", path, err)
	}
	return nil
}

// CreateDir implements types.Adapter. Directory attributes have no POSIX
// representation and are discarded.
func (a *Adapter) CreateDir(ctx context.Context, path string, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	if err := os.MkdirAll(a.fullPath(path), dirPerm(cfg.Visibility)); err != nil {
		return nil, fserrors.WrapAdapter("create_dir", path, err)
	}
	return &types.FileInfo{
		Path:       path,
		Type:       types.TypeDir,
		Timestamp:  time.Now(),
		Visibility: orPublic(cfg.Visibility),
	}, nil
}

// SetVisibility implements types.Adapter.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility types.Visibility) error {
	full := a.fullPath(path)
	info, err := os.Stat(full)
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
	if err := os.Chmod(full, perm); err != nil {
		return fserrors.WrapAdapter("set_visibility", path, err)
	}
	return nil
}

// GetMetadata implements types.Adapter. Content-type detection is deferred
// to GetMimeType since it may require reading the file.
func (a *Adapter) GetMetadata(ctx context.Context, path string) (*types.FileInfo, error) {
	info, err := os.Stat(a.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("get_metadata", path)
		}
		return nil, fserrors.WrapAdapter("get_metadata", path, err)
	}
	return a.infoFor(path, info), nil
}

// GetSize implements types.Adapter.
func (a *Adapter) GetSize(ctx context.Context, path string) (int64, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// GetMimeType implements types.Adapter. A prefix of the file is sniffed when
// the extension alone is not conclusive.
func (a *Adapter) GetMimeType(ctx context.Context, path string) (string, error) {
	f, err := os.Open(a.fullPath(path))
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
	full := a.fullPath(path)
	if info, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.FileNotFound("list_contents", path)
		}
		return nil, fserrors.WrapAdapter("list_contents", path, err)
	} else if !info.IsDir() {
		return nil, fserrors.Unsupported("list_contents", "path is not a directory")
	}

	if !recursive {
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, fserrors.WrapAdapter("list_contents", path, err)
		}
		result := make([]types.FileInfo, 0, len(entries))
		for _, entry := range entries {
			fi, err := entry.Info()
			if err != nil {
				continue // entry vanished mid-listing
			}
			result = append(result, *a.infoFor(pathutil.Join(path, entry.Name()), fi))
		}
		return result, nil
	}

	var result []types.FileInfo
	err := filepath.WalkDir(full, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == full {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		result = append(result, *a.infoFor(filepath.ToSlash(rel), fi))
		return nil
	})
	if err != nil {
		return nil, fserrors.WrapAdapter("list_contents", path, err)
	}
	return result, nil
}

// writeAtomic writes contents to a uuid-suffixed temp file in the target
// directory and renames it over the destination.
func (a *Adapter) writeAtomic(path string, contents []byte, perm os.FileMode) error {
	full := a.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), dirPermPublic); err != nil {
		return fserrors.WrapAdapter("write", path, err)
	}

	tmp := full + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, contents, perm); err != nil {
		return fserrors.WrapAdapter("write", path, err)
	}
	// WriteFile perm is subject to umask; make the visibility bits stick.
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return fserrors.WrapAdapter("write", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fserrors.WrapAdapter("write", path, err)
	}
	return nil
}

func (a *Adapter) streamAtomic(path string, r io.Reader, perm os.FileMode) (int64, error) {
	full := a.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), dirPermPublic); err != nil {
		return 0, fserrors.WrapAdapter("write_stream", path, err)
	}

	tmp := full + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, fserrors.WrapAdapter("write_stream", path, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fserrors.WrapAdapter("write_stream", path, err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return 0, fserrors.WrapAdapter("write_stream", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return 0, fserrors.WrapAdapter("write_stream", path, err)
	}
	return n, nil
}

func (a *Adapter) requireFile(op, path string) error {
	info, err := os.Stat(a.fullPath(path))
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

func (a *Adapter) infoFor(path string, info os.FileInfo) *types.FileInfo {
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

func (a *Adapter) writtenInfo(path string, size int64, cfg *types.Config) *types.FileInfo {
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
