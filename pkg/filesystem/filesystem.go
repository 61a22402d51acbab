package filesystem

import (
	"time"

	"go.uber.org/zap"

	"github.com/driftfs/driftfs/internal/cache"
	"github.com/driftfs/driftfs/internal/mimetype"
	"github.com/driftfs/driftfs/internal/pathutil"
	"github.com/driftfs/driftfs/pkg/types"
)

// Filesystem is the public entry point for all storage operations. It
// validates and normalizes every request, delegates to the adapter bound at
// construction time, and keeps a metadata cache coherent across mutations.
//
// A Filesystem is safe for concurrent use. It has no teardown beyond closing
// any streams handed out by ReadStream.
type Filesystem struct {
	adapter types.Adapter
	cache   types.MetadataCache
	logger  *zap.Logger
	metrics types.MetricsRecorder
	detect  types.MimeDetector
	strict  bool

	plugins *PluginRegistry
}

// Option configures a Filesystem.
type Option func(*Filesystem)

// WithCache replaces the default metadata cache. Passing nil disables
// caching entirely; every query then reaches the adapter.
func WithCache(c types.MetadataCache) Option {
	return func(f *Filesystem) { f.cache = c }
}

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filesystem) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics wires a metrics recorder for operation and cache observations.
func WithMetrics(m types.MetricsRecorder) Option {
	return func(f *Filesystem) { f.metrics = m }
}

// WithMimeDetector replaces the default content-type detection collaborator.
func WithMimeDetector(d types.MimeDetector) Option {
	return func(f *Filesystem) {
		if d != nil {
			f.detect = d
		}
	}
}

// WithStrictConfig makes per-call option resolution fail on unrecognized
// keys instead of dropping them.
func WithStrictConfig() Option {
	return func(f *Filesystem) { f.strict = true }
}

// New creates a Filesystem bound to adapter for the process lifetime.
func New(adapter types.Adapter, opts ...Option) *Filesystem {
	f := &Filesystem{
		adapter: adapter,
		cache:   cache.New(nil),
		logger:  zap.NewNop(),
		detect:  mimetype.Detect,
		plugins: NewPluginRegistry(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cache == nil {
		f.cache = noopCache{}
	}
	return f
}

// Adapter returns the bound adapter, for plugins and advanced callers.
func (f *Filesystem) Adapter() types.Adapter {
	return f.adapter
}

// CacheStats returns metadata cache counters.
func (f *Filesystem) CacheStats() types.CacheStats {
	return f.cache.Stats()
}

// FlushCache drops every cached record and listing. It returns the receiver
// for chaining.
func (f *Filesystem) FlushCache() *Filesystem {
	f.cache.InvalidateAll()
	f.logger.Debug("metadata cache flushed")
	return f
}

// track starts instrumentation for one operation; the returned func must be
// invoked with the operation's final error.
func (f *Filesystem) track(op string) func(error) {
	start := time.Now()
	return func(err error) {
		if f.metrics != nil {
			f.metrics.RecordOperation(op, time.Since(start), err)
		}
		if err != nil {
			f.logger.Debug("operation failed",
				zap.String("operation", op),
				zap.Error(err))
		}
	}
}

func (f *Filesystem) cacheHit(op string) {
	if f.metrics != nil {
		f.metrics.RecordCacheHit(op)
	}
}

func (f *Filesystem) cacheMiss(op string) {
	if f.metrics != nil {
		f.metrics.RecordCacheMiss(op)
	}
}

// normalize canonicalizes one path argument.
func normalize(raw string) (string, error) {
	return pathutil.Normalize(raw)
}

// noopCache is used when caching is explicitly disabled.
type noopCache struct{}

func (noopCache) Get(string) (*types.FileInfo, bool)          { return nil, false }
func (noopCache) GetListing(string, bool) (*types.Listing, bool) { return nil, false }
func (noopCache) Put(types.FileInfo)                          {}
func (noopCache) PutListing(types.Listing)                    {}
func (noopCache) Invalidate(string)                           {}
func (noopCache) InvalidatePrefix(string)                     {}
func (noopCache) InvalidateAll()                              {}
func (noopCache) Stats() types.CacheStats                     { return types.CacheStats{} }
