// Package s3fs implements the adapter contract on top of Amazon S3 or any
// S3-compatible object store (MinIO, Ceph RGW, LocalStack).
//
// S3 has no real directories. Directories are modeled the common way: a
// zero-byte marker object whose key ends in "/", plus the implicit
// directories formed by key prefixes. Visibility maps to the canned ACLs
// public-read and private.
package s3fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/driftfs/driftfs/internal/mimetype"
	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

const listPageSize = 1000

// Config holds the connection settings for an S3 adapter.
type Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// Prefix scopes all keys under a common root inside the bucket.
	Prefix string `yaml:"prefix"`
}

// Client is the subset of the S3 API the adapter uses. *s3.Client satisfies
// it; tests substitute a stub.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObjectAcl(ctx context.Context, params *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
	GetObjectAcl(ctx context.Context, params *s3.GetObjectAclInput, optFns ...func(*s3.Options)) (*s3.GetObjectAclOutput, error)
}

// Adapter is an S3-backed implementation of types.Adapter.
type Adapter struct {
	client Client
	bucket string
	prefix string
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

// New connects to S3 using cfg and returns a ready adapter. Credentials fall
// back to the default AWS chain when not set explicitly.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Adapter, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, fserrors.InvalidConfig("bucket", "bucket name cannot be empty")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fserrors.WrapAdapter("connect", cfg.Bucket, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

// NewWithClient wraps an existing client. Used by tests and by callers that
// manage their own AWS configuration.
func NewWithClient(client Client, bucket, prefix string, opts ...Option) *Adapter {
	a := &Adapter{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("s3 adapter ready",
		zap.String("bucket", a.bucket), zap.String("prefix", a.prefix))
	return a
}

// key maps a normalized path to an object key, applying the configured
// prefix.
func (a *Adapter) key(path string) string {
	if a.prefix == "" {
		return path
	}
	if path == "" {
		return a.prefix
	}
	return a.prefix + "/" + path
}

// path maps an object key back to a normalized path.
func (a *Adapter) path(key string) string {
	key = strings.TrimSuffix(key, "/")
	if a.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, a.prefix+"/")
}

func (a *Adapter) dirKey(path string) string {
	return a.key(path) + "/"
}

// Has implements types.Adapter. A path exists if it is an object, a
// directory marker, or a prefix with at least one object beneath it.
func (a *Adapter) Has(ctx context.Context, path string) (bool, error) {
	if _, err := a.head(ctx, a.key(path)); err == nil {
		return true, nil
	} else if !isNotFound(err) {
		return false, fserrors.WrapAdapter("has", path, err)
	}
	if _, err := a.head(ctx, a.dirKey(path)); err == nil {
		return true, nil
	} else if !isNotFound(err) {
		return false, fserrors.WrapAdapter("has", path, err)
	}

	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(a.dirKey(path)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fserrors.WrapAdapter("has", path, err)
	}
	return len(out.Contents) > 0, nil
}

// Read implements types.Adapter.
func (a *Adapter) Read(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.ReadStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fserrors.WrapAdapter("read", path, err)
	}
	return data, nil
}

// ReadStream implements types.Adapter.
func (a *Adapter) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(path)),
	})
	if err != nil {
		return nil, a.translateError("read", path, err)
	}
	return out.Body, nil
}

// Write implements types.Adapter.
func (a *Adapter) Write(ctx context.Context, path string, contents []byte, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	mime := cfg.MimeType
	if mime == "" {
		mime = mimetype.Detect(path, contents)
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key(path)),
		Body:          bytes.NewReader(contents),
		ContentType:   aws.String(mime),
		ContentLength: aws.Int64(int64(len(contents))),
		ACL:           cannedACL(cfg.Visibility),
	})
	if err != nil {
		return nil, a.translateError("write", path, err)
	}
	return writtenInfo(path, int64(len(contents)), mime, cfg), nil
}

// WriteStream implements types.Adapter. The stream is buffered so the
// upload carries an exact content length.
func (a *Adapter) WriteStream(ctx context.Context, path string, r io.Reader, cfg *types.Config) (*types.FileInfo, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, fserrors.WrapAdapter("write_stream", path, err)
	}
	return a.Write(ctx, path, contents, cfg)
}

// Update implements types.Adapter.
func (a *Adapter) Update(ctx context.Context, path string, contents []byte, cfg *types.Config) (*types.FileInfo, error) {
	if err := a.requireObject(ctx, "update", path); err != nil {
		return nil, err
	}
	return a.Write(ctx, path, contents, cfg)
}

// UpdateStream implements types.Adapter.
func (a *Adapter) UpdateStream(ctx context.Context, path string, r io.Reader, cfg *types.Config) (*types.FileInfo, error) {
	if err := a.requireObject(ctx, "update_stream", path); err != nil {
		return nil, err
	}
	return a.WriteStream(ctx, path, r, cfg)
}

// Rename implements types.Adapter. S3 has no native rename, so this is a
// server-side copy followed by a delete.
func (a *Adapter) Rename(ctx context.Context, path, newPath string) error {
	if err := a.copyObject(ctx, "rename", path, newPath); err != nil {
		return err
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(path)),
	})
	if err != nil {
		return a.translateError("rename", path, err)
	}
	return nil
}

// Copy implements types.Adapter.
func (a *Adapter) Copy(ctx context.Context, path, newPath string) error {
	return a.copyObject(ctx, "copy", path, newPath)
}

// Delete implements types.Adapter.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := a.requireObject(ctx, "delete", path); err != nil {
		return err
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(path)),
	})
	if err != nil {
		return a.translateError("delete", path, err)
	}
	return nil
}

// DeleteDir implements types.Adapter. All objects under the prefix are
// removed in batches, the directory marker included.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	prefix := a.dirKey(path)
	var token *string
	deleted := false

	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(prefix),
			MaxKeys:           aws.Int32(listPageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return a.translateError("delete_dir", path, err)
		}

		if len(out.Contents) > 0 {
			deleted = true
			objects := make([]s3types.ObjectIdentifier, 0, len(out.Contents))
			for _, obj := range out.Contents {
				objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
			}
			_, err = a.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(a.bucket),
				Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return a.translateError("delete_dir", path, err)
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	if !deleted {
		return fserrors.FileNotFound("delete_dir", path)
	}
	return nil
}

// CreateDir implements types.Adapter by writing a zero-byte marker object.
// Directory attributes are stored as user metadata on the marker.
func (a *Adapter) CreateDir(ctx context.Context, path string, cfg *types.Config) (*types.FileInfo, error) {
	cfg = orDefault(cfg)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.dirKey(path)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
		ACL:           cannedACL(cfg.Visibility),
	}
	if len(cfg.DirAttributes) > 0 {
		input.Metadata = cfg.DirAttributes
	}
	_, err := a.client.PutObject(ctx, input)
	if err != nil {
		return nil, a.translateError("create_dir", path, err)
	}
	return &types.FileInfo{
		Path:       path,
		Type:       types.TypeDir,
		Timestamp:  time.Now(),
		Visibility: orPublic(cfg.Visibility),
	}, nil
}

// SetVisibility implements types.Adapter with canned ACLs. Directories are
// reached through their marker object when no file key matches.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility types.Visibility) error {
	err := a.putACL(ctx, a.key(path), visibility)
	if err != nil && isNotFound(err) {
		err = a.putACL(ctx, a.dirKey(path), visibility)
	}
	if err != nil {
		return a.translateError("set_visibility", path, err)
	}
	return nil
}

func (a *Adapter) putACL(ctx context.Context, key string, visibility types.Visibility) error {
	_, err := a.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		ACL:    cannedACL(visibility),
	})
	return err
}

// GetMetadata implements types.Adapter.
func (a *Adapter) GetMetadata(ctx context.Context, path string) (*types.FileInfo, error) {
	out, err := a.head(ctx, a.key(path))
	if err == nil {
		info := &types.FileInfo{
			Path:     path,
			Type:     types.TypeFile,
			Size:     aws.ToInt64(out.ContentLength),
			MimeType: aws.ToString(out.ContentType),
		}
		if out.LastModified != nil {
			info.Timestamp = *out.LastModified
		}
		return info, nil
	}
	if !isNotFound(err) {
		return nil, a.translateError("get_metadata", path, err)
	}

	// Fall back to the directory marker.
	dirOut, dirErr := a.head(ctx, a.dirKey(path))
	if dirErr != nil {
		if isNotFound(dirErr) {
			return nil, fserrors.FileNotFound("get_metadata", path)
		}
		return nil, a.translateError("get_metadata", path, dirErr)
	}
	info := &types.FileInfo{Path: path, Type: types.TypeDir}
	if dirOut.LastModified != nil {
		info.Timestamp = *dirOut.LastModified
	}
	return info, nil
}

// GetSize implements types.Adapter.
func (a *Adapter) GetSize(ctx context.Context, path string) (int64, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// GetMimeType implements types.Adapter. S3 stores the content type with the
// object, so no sniffing is needed.
func (a *Adapter) GetMimeType(ctx context.Context, path string) (string, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return "", err
	}
	if info.MimeType != "" {
		return info.MimeType, nil
	}
	return mimetype.ByExtension(path), nil
}

// GetTimestamp implements types.Adapter.
func (a *Adapter) GetTimestamp(ctx context.Context, path string) (time.Time, error) {
	info, err := a.GetMetadata(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return info.Timestamp, nil
}

// GetVisibility implements types.Adapter by inspecting the object ACL for an
// AllUsers read grant. Directories are reached through their marker object
// when no file key matches.
func (a *Adapter) GetVisibility(ctx context.Context, path string) (types.Visibility, error) {
	out, err := a.getACL(ctx, a.key(path))
	if err != nil && isNotFound(err) {
		out, err = a.getACL(ctx, a.dirKey(path))
	}
	if err != nil {
		return "", a.translateError("get_visibility", path, err)
	}
	for _, grant := range out.Grants {
		if grant.Grantee == nil || grant.Grantee.URI == nil {
			continue
		}
		if strings.HasSuffix(*grant.Grantee.URI, "/global/AllUsers") &&
			(grant.Permission == s3types.PermissionRead || grant.Permission == s3types.PermissionFullControl) {
			return types.VisibilityPublic, nil
		}
	}
	return types.VisibilityPrivate, nil
}

func (a *Adapter) getACL(ctx context.Context, key string) (*s3.GetObjectAclOutput, error) {
	return a.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
}

// ListContents implements types.Adapter. Shallow listings use a delimiter so
// common prefixes surface as directories; recursive listings paginate the
// whole subtree.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]types.FileInfo, error) {
	prefix := ""
	if path != "" {
		prefix = a.dirKey(path)
	} else if a.prefix != "" {
		prefix = a.prefix + "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(listPageSize),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var result []types.FileInfo
	seen := make(map[string]bool)
	for {
		out, err := a.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, a.translateError("list_contents", path, err)
		}

		for _, cp := range out.CommonPrefixes {
			dir := a.path(aws.ToString(cp.Prefix))
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			result = append(result, types.FileInfo{Path: dir, Type: types.TypeDir})
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				// Directory marker.
				dir := a.path(key)
				if dir == "" || dir == path || seen[dir] {
					continue
				}
				seen[dir] = true
				result = append(result, types.FileInfo{Path: dir, Type: types.TypeDir})
				continue
			}
			info := types.FileInfo{
				Path: a.path(key),
				Type: types.TypeFile,
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.Timestamp = *obj.LastModified
			}
			result = append(result, info)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return result, nil
}

func (a *Adapter) copyObject(ctx context.Context, op, path, newPath string) error {
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		Key:        aws.String(a.key(newPath)),
		CopySource: aws.String(a.bucket + "/" + a.key(path)),
	})
	if err != nil {
		return a.translateError(op, path, err)
	}
	return nil
}

func (a *Adapter) requireObject(ctx context.Context, op, path string) error {
	if _, err := a.head(ctx, a.key(path)); err != nil {
		if isNotFound(err) {
			return fserrors.FileNotFound(op, path)
		}
		return a.translateError(op, path, err)
	}
	return nil
}

func (a *Adapter) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
}

// translateError maps SDK failures onto the shared error taxonomy.
func (a *Adapter) translateError(op, path string, err error) error {
	switch {
	case isNotFound(err):
		return fserrors.FileNotFound(op, path)
	case isErrorType[*s3types.NoSuchBucket](err):
		return fserrors.InvalidConfig("bucket", "bucket not found: "+a.bucket)
	default:
		return fserrors.WrapAdapter(op, path, err)
	}
}

func isNotFound(err error) bool {
	return isErrorType[*s3types.NoSuchKey](err) || isErrorType[*s3types.NotFound](err)
}

// isErrorType checks if an error is of a specific type.
func isErrorType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func cannedACL(v types.Visibility) s3types.ObjectCannedACL {
	if v == types.VisibilityPrivate {
		return s3types.ObjectCannedACLPrivate
	}
	return s3types.ObjectCannedACLPublicRead
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

func writtenInfo(path string, size int64, mime string, cfg *types.Config) *types.FileInfo {
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
		MimeType:   mime,
	}
}
