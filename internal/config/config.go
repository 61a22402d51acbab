// Package config defines the deployment settings used to assemble a driftfs
// facade: which adapter to bind, cache limits, logging, and metrics. Settings
// load from YAML files and environment variables, with defaults suitable for
// local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Settings represents the complete deployment configuration.
type Settings struct {
	Adapter AdapterSettings `yaml:"adapter"`
	Cache   CacheSettings   `yaml:"cache"`
	Logging LoggingSettings `yaml:"logging"`
	Metrics MetricsSettings `yaml:"metrics"`

	// StrictConfig selects the per-call option resolution policy: strict
	// deployments reject unrecognized option keys, permissive ones drop them.
	StrictConfig bool `yaml:"strict_config"`
}

// AdapterSettings selects and configures the bound storage backend.
type AdapterSettings struct {
	// Kind is one of "local", "memory" or "s3".
	Kind  string        `yaml:"kind"`
	Local LocalSettings `yaml:"local"`
	S3    S3Settings    `yaml:"s3"`
}

// LocalSettings configures the local-disk adapter.
type LocalSettings struct {
	Root string `yaml:"root"`
}

// S3Settings configures the S3 adapter.
type S3Settings struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

// CacheSettings configures the metadata cache.
type CacheSettings struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// MetricsSettings configures Prometheus collection.
type MetricsSettings struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns settings suitable for local development.
func NewDefault() *Settings {
	return &Settings{
		Adapter: AdapterSettings{
			Kind:  "memory",
			Local: LocalSettings{Root: "."},
			S3:    S3Settings{Region: "us-east-1"},
		},
		Cache: CacheSettings{
			Enabled:    true,
			MaxEntries: 100000,
			TTL:        5 * time.Minute,
		},
		Logging: LoggingSettings{Level: "info"},
		Metrics: MetricsSettings{Enabled: false, Namespace: "driftfs"},
	}
}

// LoadFromFile merges YAML configuration from filename over the receiver.
func (s *Settings) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv merges DRIFTFS_-prefixed environment variables over the
// receiver.
func (s *Settings) LoadFromEnv() error {
	if v := os.Getenv("DRIFTFS_ADAPTER"); v != "" {
		s.Adapter.Kind = v
	}
	if v := os.Getenv("DRIFTFS_LOCAL_ROOT"); v != "" {
		s.Adapter.Local.Root = v
	}
	if v := os.Getenv("DRIFTFS_S3_BUCKET"); v != "" {
		s.Adapter.S3.Bucket = v
	}
	if v := os.Getenv("DRIFTFS_S3_REGION"); v != "" {
		s.Adapter.S3.Region = v
	}
	if v := os.Getenv("DRIFTFS_S3_ENDPOINT"); v != "" {
		s.Adapter.S3.Endpoint = v
	}
	if v := os.Getenv("DRIFTFS_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := os.Getenv("DRIFTFS_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DRIFTFS_CACHE_MAX_ENTRIES: %w", err)
		}
		s.Cache.MaxEntries = n
	}
	if v := os.Getenv("DRIFTFS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DRIFTFS_CACHE_TTL: %w", err)
		}
		s.Cache.TTL = d
	}
	if v := os.Getenv("DRIFTFS_STRICT_CONFIG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRIFTFS_STRICT_CONFIG: %w", err)
		}
		s.StrictConfig = b
	}
	return nil
}

// Validate checks the settings for internal consistency.
func (s *Settings) Validate() error {
	switch s.Adapter.Kind {
	case "local":
		if s.Adapter.Local.Root == "" {
			return fmt.Errorf("local adapter requires a root directory")
		}
	case "s3":
		if s.Adapter.S3.Bucket == "" {
			return fmt.Errorf("s3 adapter requires a bucket")
		}
		if s.Adapter.S3.Region == "" && s.Adapter.S3.Endpoint == "" {
			return fmt.Errorf("s3 adapter requires a region or endpoint")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported adapter kind: %q", s.Adapter.Kind)
	}

	if s.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries cannot be negative")
	}
	if s.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}

	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", s.Logging.Level)
	}

	return nil
}
