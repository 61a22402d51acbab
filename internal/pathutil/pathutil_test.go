package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain path", "foo/bar.txt", "foo/bar.txt"},
		{"leading slash", "/foo/bar.txt", "foo/bar.txt"},
		{"trailing slash", "foo/bar/", "foo/bar"},
		{"duplicate slashes", "foo//bar", "foo/bar"},
		{"dot segments", "./foo/./bar", "foo/bar"},
		{"dotdot within root", "foo/baz/../bar.txt", "foo/bar.txt"},
		{"backslashes", "foo\\bar\\baz.txt", "foo/bar/baz.txt"},
		{"empty is root", "", ""},
		{"dot is root", ".", ""},
		{"slash is root", "/", ""},
		{"collapses to root", "foo/..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"/foo//bar/./baz/", "a/b/../c", ""} {
		once, err := Normalize(raw)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"null byte", "foo\x00bar"},
		{"escapes root", "../etc/passwd"},
		{"escapes root mid-path", "foo/../../etc"},
		{"dotdot from root", ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			assert.True(t, fserrors.IsInvalidPath(err))
		})
	}
}

func TestParentBase(t *testing.T) {
	assert.Equal(t, "foo/bar", Parent("foo/bar/baz.txt"))
	assert.Equal(t, "", Parent("top.txt"))
	assert.Equal(t, "", Parent(""))

	assert.Equal(t, "baz.txt", Base("foo/bar/baz.txt"))
	assert.Equal(t, "top.txt", Base("top.txt"))
	assert.Equal(t, "", Base(""))
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, IsAncestor("", "foo"))
	assert.True(t, IsAncestor("foo", "foo/bar"))
	assert.True(t, IsAncestor("foo", "foo/bar/baz"))

	assert.False(t, IsAncestor("foo", "foo"))
	assert.False(t, IsAncestor("foo", "foobar"))
	assert.False(t, IsAncestor("foo/bar", "foo"))
	assert.False(t, IsAncestor("", ""))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "foo/bar", Join("foo", "bar"))
	assert.Equal(t, "bar", Join("", "bar"))
	assert.Equal(t, "", Join("", ""))
	assert.Equal(t, "a/b/c", Join("a", "", "b", "c"))
}
