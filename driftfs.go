// Package driftfs assembles a ready-to-use filesystem facade from deployment
// settings: adapter selection, metadata cache, structured logging and
// optional Prometheus metrics.
//
// Library users who want finer control can skip this package and compose
// pkg/filesystem with an adapter directly.
package driftfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/driftfs/driftfs/internal/cache"
	"github.com/driftfs/driftfs/internal/config"
	"github.com/driftfs/driftfs/internal/metrics"
	"github.com/driftfs/driftfs/pkg/adapter/billyfs"
	"github.com/driftfs/driftfs/pkg/adapter/localfs"
	"github.com/driftfs/driftfs/pkg/adapter/s3fs"
	"github.com/driftfs/driftfs/pkg/filesystem"
	"github.com/driftfs/driftfs/pkg/types"
)

// Instance bundles the assembled facade with the collaborators a deployment
// may want to reach: the logger for further wiring and the metrics collector
// for exposing a scrape handler.
type Instance struct {
	FS      *filesystem.Filesystem
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New assembles an Instance from settings. Settings are validated first, so
// callers can hand over file or environment input directly.
func New(ctx context.Context, settings *config.Settings) (*Instance, error) {
	if settings == nil {
		settings = config.NewDefault()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := buildLogger(settings.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	adapter, err := buildAdapter(ctx, settings, logger)
	if err != nil {
		return nil, err
	}

	opts := []filesystem.Option{
		filesystem.WithLogger(logger),
	}

	if settings.Cache.Enabled {
		opts = append(opts, filesystem.WithCache(cache.New(&cache.Config{
			MaxEntries: settings.Cache.MaxEntries,
			TTL:        settings.Cache.TTL,
		})))
	} else {
		opts = append(opts, filesystem.WithCache(nil))
	}

	var collector *metrics.Collector
	if settings.Metrics.Enabled {
		collector, err = metrics.NewCollector(&metrics.Config{
			Enabled:   true,
			Namespace: settings.Metrics.Namespace,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build metrics collector: %w", err)
		}
		opts = append(opts, filesystem.WithMetrics(collector))
	}

	if settings.StrictConfig {
		opts = append(opts, filesystem.WithStrictConfig())
	}

	logger.Info("filesystem assembled",
		zap.String("adapter", settings.Adapter.Kind),
		zap.Bool("cache", settings.Cache.Enabled),
		zap.Bool("metrics", settings.Metrics.Enabled))

	return &Instance{
		FS:      filesystem.New(adapter, opts...),
		Logger:  logger,
		Metrics: collector,
	}, nil
}

// NewFromFile loads settings from a YAML file, merges environment overrides
// and assembles an Instance.
func NewFromFile(ctx context.Context, filename string) (*Instance, error) {
	settings := config.NewDefault()
	if filename != "" {
		if err := settings.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	if err := settings.LoadFromEnv(); err != nil {
		return nil, err
	}
	return New(ctx, settings)
}

func buildAdapter(ctx context.Context, settings *config.Settings, logger *zap.Logger) (types.Adapter, error) {
	switch settings.Adapter.Kind {
	case "local":
		return localfs.New(settings.Adapter.Local.Root, localfs.WithLogger(logger))
	case "memory":
		return billyfs.NewMemory(billyfs.WithLogger(logger)), nil
	case "s3":
		s3cfg := settings.Adapter.S3
		return s3fs.New(ctx, &s3fs.Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			ForcePathStyle:  s3cfg.ForcePathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Prefix:          s3cfg.Prefix,
		}, s3fs.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unsupported adapter kind: %q", settings.Adapter.Kind)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	return zapCfg.Build()
}
