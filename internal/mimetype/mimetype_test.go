package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"report.json", "application/json"},
		{"docs/readme.md", "text/markdown"},
		{"photo.JPG", "image/jpeg"},
		{"archive.tar", "application/x-tar"},
		{"noextension", ""},
		{"weird.zzz9", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ByExtension(tt.path))
		})
	}
}

func TestDetect_ExtensionWins(t *testing.T) {
	// Extension takes priority over content.
	got := Detect("data.json", []byte("<html><body>hi</body></html>"))
	assert.Equal(t, "application/json", got)
}

func TestDetect_SniffsContent(t *testing.T) {
	got := Detect("blob", []byte("<!DOCTYPE html><html></html>"))
	assert.Equal(t, "text/html", got)

	got = Detect("blob", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	assert.Equal(t, "image/png", got)
}

func TestDetect_Default(t *testing.T) {
	assert.Equal(t, "application/octet-stream", Detect("blob", nil))
	assert.Equal(t, "application/octet-stream", Detect("blob", []byte{0x00, 0x01, 0x02}))
}
