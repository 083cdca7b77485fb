// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector records store, recall and cache metrics. A nil *Collector is
// valid and records nothing, so metrics stay optional for embedders.
type Collector struct {
	// Store write metrics
	storeWritesTotal   *prometheus.CounterVec
	storeWriteDuration *prometheus.HistogramVec

	// Recall metrics
	recallRequestsTotal *prometheus.CounterVec
	recallDuration      *prometheus.HistogramVec
	recallItems         *prometheus.HistogramVec

	// Context assembly metrics
	contextChars  prometheus.Histogram
	contextTokens prometheus.Histogram
	contextItems  prometheus.Histogram

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// FTS index metrics
	indexRebuildsTotal prometheus.Counter
	indexFactRows      prometheus.Gauge
	indexRows          prometheus.Gauge

	// Database metrics
	dbQueryDuration *prometheus.HistogramVec

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCollector creates a metrics collector registered on the default
// Prometheus registry under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// Store write metrics
	c.storeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Total number of store write operations",
		},
		[]string{"operation", "status"},
	)

	c.storeWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Store write duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	// Recall metrics
	c.recallRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_requests_total",
			Help:      "Total number of recall requests",
		},
		[]string{"mode", "status"},
	)

	c.recallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recall_duration_seconds",
			Help:      "Recall request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"mode"},
	)

	c.recallItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recall_items",
			Help:      "Number of items returned per recall request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"mode"},
	)

	// Context assembly metrics
	c.contextChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_chars",
			Help:      "Characters in assembled memory context blocks",
			Buckets:   []float64{256, 512, 1024, 2048, 4096, 8192},
		},
	)

	c.contextTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_tokens",
			Help:      "Estimated tokens in assembled memory context blocks",
			Buckets:   []float64{64, 128, 256, 512, 1024, 2048},
		},
	)

	c.contextItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_items",
			Help:      "Memory items included per assembled context block",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// Cache metrics
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// FTS index metrics
	c.indexRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Total number of full-text index rebuilds",
		},
	)

	c.indexFactRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_fact_rows",
			Help:      "Fact rows counted at the last index check",
		},
	)

	c.indexRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_fts_rows",
			Help:      "Full-text index rows counted at the last index check",
		},
	)

	// Database metrics
	c.dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// Store Metrics
// =============================================================================

// RecordStoreWrite records one write operation against the store.
func (c *Collector) RecordStoreWrite(operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.storeWritesTotal.WithLabelValues(operation, outcome(err)).Inc()
	c.storeWriteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDBQuery records a read query against the store.
func (c *Collector) RecordDBQuery(operation string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// =============================================================================
// Recall Metrics
// =============================================================================

// RecordRecall records one recall request.
func (c *Collector) RecordRecall(mode string, err error, duration time.Duration, items int) {
	if c == nil {
		return
	}
	c.recallRequestsTotal.WithLabelValues(mode, outcome(err)).Inc()
	c.recallDuration.WithLabelValues(mode).Observe(duration.Seconds())
	c.recallItems.WithLabelValues(mode).Observe(float64(items))
}

// RecordContextBuild records the size of one assembled context block.
func (c *Collector) RecordContextBuild(chars, tokens, items int) {
	if c == nil {
		return
	}
	c.contextChars.Observe(float64(chars))
	c.contextTokens.Observe(float64(tokens))
	c.contextItems.Observe(float64(items))
}

// =============================================================================
// Cache Metrics
// =============================================================================

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// Index Metrics
// =============================================================================

// RecordIndexRebuild records a full-text index rebuild.
func (c *Collector) RecordIndexRebuild() {
	if c == nil {
		return
	}
	c.indexRebuildsTotal.Inc()
}

// SetIndexRows records row counts from an index consistency check.
func (c *Collector) SetIndexRows(factRows, indexRows int64) {
	if c == nil {
		return
	}
	c.indexFactRows.Set(float64(factRows))
	c.indexRows.Set(float64(indexRows))
}

// =============================================================================
// Helpers
// =============================================================================

// outcome maps an error to a status label.
func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
