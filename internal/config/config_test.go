package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	s := NewDefault()
	assert.Equal(t, "memory", s.Adapter.Kind)
	assert.True(t, s.Cache.Enabled)
	assert.Equal(t, 100000, s.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, s.Cache.TTL)
	assert.Equal(t, "info", s.Logging.Level)
	require.NoError(t, s.Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
adapter:
  kind: s3
  s3:
    bucket: assets
    region: eu-west-1
    prefix: uploads
cache:
  enabled: true
  max_entries: 500
  ttl: 30s
logging:
  level: debug
strict_config: true
`
	filename := filepath.Join(t.TempDir(), "driftfs.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	s := NewDefault()
	require.NoError(t, s.LoadFromFile(filename))

	assert.Equal(t, "s3", s.Adapter.Kind)
	assert.Equal(t, "assets", s.Adapter.S3.Bucket)
	assert.Equal(t, "eu-west-1", s.Adapter.S3.Region)
	assert.Equal(t, "uploads", s.Adapter.S3.Prefix)
	assert.Equal(t, 500, s.Cache.MaxEntries)
	assert.Equal(t, 30*time.Second, s.Cache.TTL)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.True(t, s.StrictConfig)
	require.NoError(t, s.Validate())
}

func TestLoadFromFile_Missing(t *testing.T) {
	s := NewDefault()
	assert.Error(t, s.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DRIFTFS_ADAPTER", "local")
	t.Setenv("DRIFTFS_LOCAL_ROOT", "/srv/data")
	t.Setenv("DRIFTFS_LOG_LEVEL", "warn")
	t.Setenv("DRIFTFS_CACHE_MAX_ENTRIES", "42")
	t.Setenv("DRIFTFS_CACHE_TTL", "90s")
	t.Setenv("DRIFTFS_STRICT_CONFIG", "true")

	s := NewDefault()
	require.NoError(t, s.LoadFromEnv())

	assert.Equal(t, "local", s.Adapter.Kind)
	assert.Equal(t, "/srv/data", s.Adapter.Local.Root)
	assert.Equal(t, "warn", s.Logging.Level)
	assert.Equal(t, 42, s.Cache.MaxEntries)
	assert.Equal(t, 90*time.Second, s.Cache.TTL)
	assert.True(t, s.StrictConfig)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("DRIFTFS_CACHE_MAX_ENTRIES", "lots")
	s := NewDefault()
	assert.Error(t, s.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"default ok", func(s *Settings) {}, false},
		{"local without root", func(s *Settings) {
			s.Adapter.Kind = "local"
			s.Adapter.Local.Root = ""
		}, true},
		{"s3 without bucket", func(s *Settings) {
			s.Adapter.Kind = "s3"
		}, true},
		{"s3 with bucket and region", func(s *Settings) {
			s.Adapter.Kind = "s3"
			s.Adapter.S3.Bucket = "assets"
		}, false},
		{"unknown adapter", func(s *Settings) {
			s.Adapter.Kind = "ftp"
		}, true},
		{"negative cache entries", func(s *Settings) {
			s.Cache.MaxEntries = -1
		}, true},
		{"bad log level", func(s *Settings) {
			s.Logging.Level = "loud"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDefault()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
