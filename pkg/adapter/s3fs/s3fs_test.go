package s3fs

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// stubClient is an in-memory stand-in for the S3 API.
type stubClient struct {
	objects map[string][]byte
	mimes   map[string]string
	acls    map[string]s3types.ObjectCannedACL

	lastPut    *s3.PutObjectInput
	listPages  []*s3.ListObjectsV2Output
	listCalls  int
	deletedKey []string
}

func newStubClient() *stubClient {
	return &stubClient{
		objects: make(map[string][]byte),
		mimes:   make(map[string]string),
		acls:    make(map[string]s3types.ObjectCannedACL),
	}
}

func (c *stubClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	contents, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(contents))),
		ContentType:   aws.String(c.mimes[aws.ToString(in.Key)]),
		LastModified:  aws.Time(time.Now()),
	}, nil
}

func (c *stubClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	contents, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(contents)),
		ContentLength: aws.Int64(int64(len(contents))),
	}, nil
}

func (c *stubClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	contents, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	c.objects[key] = contents
	c.mimes[key] = aws.ToString(in.ContentType)
	c.acls[key] = in.ACL
	c.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (c *stubClient) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	// CopySource is "bucket/key".
	source := aws.ToString(in.CopySource)
	key := source[len("test-bucket/"):]
	contents, ok := c.objects[key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	c.objects[aws.ToString(in.Key)] = append([]byte(nil), contents...)
	c.mimes[aws.ToString(in.Key)] = c.mimes[key]
	return &s3.CopyObjectOutput{}, nil
}

func (c *stubClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	delete(c.objects, key)
	c.deletedKey = append(c.deletedKey, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (c *stubClient) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, obj := range in.Delete.Objects {
		key := aws.ToString(obj.Key)
		delete(c.objects, key)
		c.deletedKey = append(c.deletedKey, key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (c *stubClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if c.listPages != nil {
		page := c.listPages[c.listCalls]
		c.listCalls++
		return page, nil
	}

	prefix := aws.ToString(in.Prefix)
	var contents []s3types.Object
	for key, data := range c.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			contents = append(contents, s3types.Object{
				Key:  aws.String(key),
				Size: aws.Int64(int64(len(data))),
			})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: aws.Bool(false)}, nil
}

func (c *stubClient) PutObjectAcl(ctx context.Context, in *s3.PutObjectAclInput, _ ...func(*s3.Options)) (*s3.PutObjectAclOutput, error) {
	key := aws.ToString(in.Key)
	if _, ok := c.objects[key]; !ok {
		return nil, &s3types.NoSuchKey{}
	}
	c.acls[key] = in.ACL
	return &s3.PutObjectAclOutput{}, nil
}

func (c *stubClient) GetObjectAcl(ctx context.Context, in *s3.GetObjectAclInput, _ ...func(*s3.Options)) (*s3.GetObjectAclOutput, error) {
	key := aws.ToString(in.Key)
	if _, ok := c.objects[key]; !ok {
		return nil, &s3types.NoSuchKey{}
	}
	out := &s3.GetObjectAclOutput{}
	if c.acls[key] == s3types.ObjectCannedACLPublicRead {
		out.Grants = []s3types.Grant{{
			Grantee:    &s3types.Grantee{URI: aws.String("http://acs.amazonaws.com/groups/global/AllUsers")},
			Permission: s3types.PermissionRead,
		}}
	}
	return out, nil
}

func newTestAdapter(t *testing.T, prefix string) (*Adapter, *stubClient) {
	t.Helper()
	client := newStubClient()
	return NewWithClient(client, "test-bucket", prefix), client
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	require.Error(t, err)
	assert.True(t, fserrors.IsInvalidConfig(err))

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestKeyMapping(t *testing.T) {
	a := NewWithClient(newStubClient(), "b", "uploads")
	assert.Equal(t, "uploads/docs/a.txt", a.key("docs/a.txt"))
	assert.Equal(t, "uploads", a.key(""))
	assert.Equal(t, "docs/a.txt", a.path("uploads/docs/a.txt"))
	assert.Equal(t, "docs", a.path("uploads/docs/"))

	unprefixed := NewWithClient(newStubClient(), "b", "")
	assert.Equal(t, "docs/a.txt", unprefixed.key("docs/a.txt"))
	assert.Equal(t, "docs/a.txt/", unprefixed.dirKey("docs/a.txt"))
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "uploads")

	info, err := a.Write(ctx, "docs/report.json", []byte(`{"ok":true}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.MimeType)

	// Content type and prefix-mapped key reached the backend.
	assert.Equal(t, "uploads/docs/report.json", aws.ToString(client.lastPut.Key))
	assert.Equal(t, "application/json", aws.ToString(client.lastPut.ContentType))
	assert.Equal(t, int64(11), aws.ToInt64(client.lastPut.ContentLength))

	contents, err := a.Read(ctx, "docs/report.json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(contents))
}

func TestRead_TranslatesNoSuchKey(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, "")

	_, err := a.Read(ctx, "missing.txt")
	require.Error(t, err)
	assert.True(t, fserrors.IsNotFound(err))
}

func TestVisibilityACLs(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	_, err := a.Write(ctx, "private.txt", []byte("x"), &types.Config{Visibility: types.VisibilityPrivate})
	require.NoError(t, err)
	assert.Equal(t, s3types.ObjectCannedACLPrivate, client.acls["private.txt"])

	v, err := a.GetVisibility(ctx, "private.txt")
	require.NoError(t, err)
	assert.Equal(t, types.VisibilityPrivate, v)

	require.NoError(t, a.SetVisibility(ctx, "private.txt", types.VisibilityPublic))
	v, err = a.GetVisibility(ctx, "private.txt")
	require.NoError(t, err)
	assert.Equal(t, types.VisibilityPublic, v)
}

func TestUpdate_RequiresExisting(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, "")

	_, err := a.Update(ctx, "missing.txt", []byte("x"), nil)
	assert.True(t, fserrors.IsNotFound(err))

	_, err = a.Write(ctx, "a.txt", []byte("v1"), nil)
	require.NoError(t, err)
	_, err = a.Update(ctx, "a.txt", []byte("v2"), nil)
	require.NoError(t, err)

	contents, err := a.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(contents))
}

func TestRenameCopiesThenDeletes(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	_, err := a.Write(ctx, "a.txt", []byte("payload"), nil)
	require.NoError(t, err)

	require.NoError(t, a.Rename(ctx, "a.txt", "b.txt"))
	assert.Contains(t, client.deletedKey, "a.txt")

	contents, err := a.Read(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(contents))

	_, err = a.Read(ctx, "a.txt")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestDeleteDir_PaginatesAndBatches(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	client.listPages = []*s3.ListObjectsV2Output{
		{
			Contents: []s3types.Object{
				{Key: aws.String("docs/a.txt")},
				{Key: aws.String("docs/b.txt")},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page2"),
		},
		{
			Contents: []s3types.Object{
				{Key: aws.String("docs/sub/c.txt")},
				{Key: aws.String("docs/")},
			},
			IsTruncated: aws.Bool(false),
		},
	}

	require.NoError(t, a.DeleteDir(ctx, "docs"))
	assert.Equal(t, 2, client.listCalls)
	assert.ElementsMatch(t,
		[]string{"docs/a.txt", "docs/b.txt", "docs/sub/c.txt", "docs/"},
		client.deletedKey)
}

func TestDeleteDir_Empty(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	client.listPages = []*s3.ListObjectsV2Output{
		{IsTruncated: aws.Bool(false)},
	}

	err := a.DeleteDir(ctx, "nothing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestCreateDir_WritesMarker(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "uploads")

	info, err := a.CreateDir(ctx, "docs", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TypeDir, info.Type)

	_, ok := client.objects["uploads/docs/"]
	assert.True(t, ok)
}

func TestCreateDir_AttachesAttributes(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	_, err := a.CreateDir(ctx, "docs", &types.Config{
		DirAttributes: map[string]string{"team": "storage"},
	})
	require.NoError(t, err)
	require.NotNil(t, client.lastPut)
	assert.Equal(t, map[string]string{"team": "storage"}, client.lastPut.Metadata)
}

func TestDirectoryVisibility_UsesMarker(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	_, err := a.CreateDir(ctx, "docs", nil)
	require.NoError(t, err)

	v, err := a.GetVisibility(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, types.VisibilityPublic, v)

	require.NoError(t, a.SetVisibility(ctx, "docs", types.VisibilityPrivate))
	assert.Equal(t, s3types.ObjectCannedACLPrivate, client.acls["docs/"])

	v, err = a.GetVisibility(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, types.VisibilityPrivate, v)

	err = a.SetVisibility(ctx, "missing", types.VisibilityPrivate)
	assert.True(t, fserrors.IsNotFound(err))
	_, err = a.GetVisibility(ctx, "missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestHas(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	client.objects["docs/a.txt"] = []byte("x")

	// Plain object.
	exists, err := a.Has(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	// Implicit directory via prefix probe.
	exists, err = a.Has(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = a.Has(ctx, "images")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListContents_ParsesPrefixesAndMarkers(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	client.listPages = []*s3.ListObjectsV2Output{
		{
			CommonPrefixes: []s3types.CommonPrefix{
				{Prefix: aws.String("docs/sub/")},
			},
			Contents: []s3types.Object{
				{Key: aws.String("docs/"), Size: aws.Int64(0)},
				{Key: aws.String("docs/a.txt"), Size: aws.Int64(3), LastModified: aws.Time(time.Now())},
			},
			IsTruncated: aws.Bool(false),
		},
	}

	listing, err := a.ListContents(ctx, "docs", false)
	require.NoError(t, err)

	byPath := make(map[string]types.FileInfo, len(listing))
	for _, e := range listing {
		byPath[e.Path] = e
	}
	require.Len(t, byPath, 2)
	assert.Equal(t, types.TypeDir, byPath["docs/sub"].Type)
	assert.Equal(t, types.TypeFile, byPath["docs/a.txt"].Type)
	assert.Equal(t, int64(3), byPath["docs/a.txt"].Size)
}

func TestGetMetadata_DirectoryMarkerFallback(t *testing.T) {
	ctx := context.Background()
	a, client := newTestAdapter(t, "")

	client.objects["docs/"] = nil

	info, err := a.GetMetadata(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = a.GetMetadata(ctx, "missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestGetMimeType_StoredWithObject(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, "")

	_, err := a.Write(ctx, "a.csv", []byte("x,y\n"), nil)
	require.NoError(t, err)

	mt, err := a.GetMimeType(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mt)
}
