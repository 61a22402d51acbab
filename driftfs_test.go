package driftfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	ctx := context.Background()

	inst, err := New(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, inst.FS)
	assert.Nil(t, inst.Metrics)

	_, err = inst.FS.Write(ctx, "hello.txt", []byte("assembled"), nil)
	require.NoError(t, err)

	contents, err := inst.FS.Read(ctx, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "assembled", string(contents))
}

func TestNew_LocalAdapter(t *testing.T) {
	ctx := context.Background()

	settings := config.NewDefault()
	settings.Adapter.Kind = "local"
	settings.Adapter.Local.Root = t.TempDir()

	inst, err := New(ctx, settings)
	require.NoError(t, err)

	_, err = inst.FS.Write(ctx, "docs/a.txt", []byte("on disk"), nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(settings.Adapter.Local.Root, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(raw))
}

func TestNew_MetricsEnabled(t *testing.T) {
	ctx := context.Background()

	settings := config.NewDefault()
	settings.Metrics.Enabled = true

	inst, err := New(ctx, settings)
	require.NoError(t, err)
	require.NotNil(t, inst.Metrics)
	assert.NotNil(t, inst.Metrics.Handler())
}

func TestNew_InvalidSettings(t *testing.T) {
	settings := config.NewDefault()
	settings.Adapter.Kind = "carrier-pigeon"

	_, err := New(context.Background(), settings)
	assert.Error(t, err)

	settings = config.NewDefault()
	settings.Logging.Level = "loud"
	_, err = New(context.Background(), settings)
	assert.Error(t, err)
}

func TestNewFromFile(t *testing.T) {
	ctx := context.Background()

	content := `
adapter:
  kind: memory
cache:
  enabled: false
logging:
  level: error
`
	filename := filepath.Join(t.TempDir(), "driftfs.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	inst, err := NewFromFile(ctx, filename)
	require.NoError(t, err)

	_, err = inst.FS.Write(ctx, "a.txt", []byte("x"), nil)
	require.NoError(t, err)
}
