// Package metrics implements Prometheus instrumentation for facade
// operations: counts and latencies per operation, errors by classification,
// and metadata cache hit rates.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels"`
}

// Collector records facade observations into a dedicated Prometheus registry.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec
	cacheCounter      *prometheus.CounterVec
}

var _ types.MetricsRecorder = (*Collector)(nil)

// NewCollector creates a metrics collector. A nil config enables collection
// under the "driftfs" namespace.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{Enabled: true, Namespace: "driftfs"}
	}
	if config.Namespace == "" {
		config.Namespace = "driftfs"
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "operations_total",
		Help:        "Total filesystem operations by name and status",
		ConstLabels: prometheus.Labels(config.Labels),
	}, []string{"operation", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Name:        "operation_duration_seconds",
		Help:        "Filesystem operation latency",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: prometheus.Labels(config.Labels),
	}, []string{"operation"})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "errors_total",
		Help:        "Operation failures by error classification",
		ConstLabels: prometheus.Labels(config.Labels),
	}, []string{"operation", "code"})

	c.cacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "cache_events_total",
		Help:        "Metadata cache hits and misses by operation",
		ConstLabels: prometheus.Labels(config.Labels),
	}, []string{"operation", "event"})

	collectors := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.errorCounter,
		c.cacheCounter,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordOperation records one completed facade operation.
func (c *Collector) RecordOperation(operation string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		code := string(fserrors.CodeOf(err))
		if code == "" {
			code = "UNCLASSIFIED"
		}
		c.errorCounter.WithLabelValues(operation, code).Inc()
	}
	c.operationCounter.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit records a metadata cache hit observed by operation.
func (c *Collector) RecordCacheHit(operation string) {
	if !c.config.Enabled {
		return
	}
	c.cacheCounter.WithLabelValues(operation, "hit").Inc()
}

// RecordCacheMiss records a metadata cache miss observed by operation.
func (c *Collector) RecordCacheMiss(operation string) {
	if !c.config.Enabled {
		return
	}
	c.cacheCounter.WithLabelValues(operation, "miss").Inc()
}

// Handler exposes the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for embedding into an existing
// metrics endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
