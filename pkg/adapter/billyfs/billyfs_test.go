package billyfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	info, err := a.Write(ctx, "docs/a.txt", []byte("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", info.Path)
	assert.Equal(t, int64(5), info.Size)

	contents, err := a.Read(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	exists, err := a.Has(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = a.Has(ctx, "missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadStream(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	_, err := a.WriteStream(ctx, "s.bin", strings.NewReader("streamed"), nil)
	require.NoError(t, err)

	rc, err := a.ReadStream(ctx, "s.bin")
	require.NoError(t, err)
	defer rc.Close()

	contents, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(contents))

	_, err = a.ReadStream(ctx, "missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

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

func TestRenameAndCopy(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	_, err := a.Write(ctx, "a.txt", []byte("payload"), nil)
	require.NoError(t, err)

	require.NoError(t, a.Rename(ctx, "a.txt", "moved/b.txt"))
	exists, err := a.Has(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, a.Copy(ctx, "moved/b.txt", "copied/c.txt"))
	for _, path := range []string{"moved/b.txt", "copied/c.txt"} {
		contents, err := a.Read(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(contents))
	}

	assert.True(t, fserrors.IsNotFound(a.Rename(ctx, "missing", "x")))
	assert.True(t, fserrors.IsNotFound(a.Copy(ctx, "missing", "x")))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	_, err := a.Write(ctx, "a.txt", []byte("x"), nil)
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, "a.txt"))

	assert.True(t, fserrors.IsNotFound(a.Delete(ctx, "a.txt")))
}

func TestDeleteDir(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	for _, path := range []string{"docs/a.txt", "docs/sub/b.txt"} {
		_, err := a.Write(ctx, path, []byte("x"), nil)
		require.NoError(t, err)
	}

	require.NoError(t, a.DeleteDir(ctx, "docs"))

	for _, path := range []string{"docs/a.txt", "docs/sub/b.txt"} {
		exists, err := a.Has(ctx, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}

	assert.True(t, fserrors.IsNotFound(a.DeleteDir(ctx, "nothing-here")))
}

func TestSetVisibility_UnsupportedOnMemory(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	_, err := a.Write(ctx, "a.txt", []byte("x"), nil)
	require.NoError(t, err)

	err = a.SetVisibility(ctx, "a.txt", types.VisibilityPrivate)
	assert.True(t, fserrors.IsUnsupported(err))
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	_, err := a.Write(ctx, "data.json", []byte(`{"n":1}`), nil)
	require.NoError(t, err)

	info, err := a.GetMetadata(ctx, "data.json")
	require.NoError(t, err)
	assert.Equal(t, types.TypeFile, info.Type)
	assert.Equal(t, int64(7), info.Size)

	size, err := a.GetSize(ctx, "data.json")
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	mt, err := a.GetMimeType(ctx, "data.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", mt)

	_, err = a.GetMetadata(ctx, "missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestListContents(t *testing.T) {
	ctx := context.Background()
	a := NewMemory()

	for _, path := range []string{"docs/a.txt", "docs/b.txt", "docs/sub/c.txt"} {
		_, err := a.Write(ctx, path, []byte("x"), nil)
		require.NoError(t, err)
	}

	shallow, err := a.ListContents(ctx, "docs", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs/a.txt", "docs/b.txt", "docs/sub"}, paths(shallow))

	deep, err := a.ListContents(ctx, "docs", true)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"docs/a.txt", "docs/b.txt", "docs/sub", "docs/sub/c.txt"},
		paths(deep))
}

func paths(entries []types.FileInfo) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Path)
	}
	return result
}
