// Package metrics exposes Prometheus collectors for matrix loading.
//
// Metrics:
//   - mtx_files_loaded_total: files processed by the loader, by status
//   - mtx_entries_parsed_total: entries delivered by body scans, by field
//   - mtx_blocks_parsed_total: blocks handed to parallel workers
//   - mtx_bytes_parsed_total: body bytes read by parallel scans
//   - mtx_parse_errors_total: failed parses, by error kind
//   - mtx_load_duration_seconds: wall time to load one file
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// Namespace prefixes every metric name.
const Namespace = "mtx"

// File statuses recorded by RecordFile.
const (
	StatusLoaded  = "loaded"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Collector owns a registry and the loader's collectors.
type Collector struct {
	registry *prometheus.Registry

	filesLoaded   *prometheus.CounterVec
	entriesParsed *prometheus.CounterVec
	blocksParsed  prometheus.Counter
	bytesParsed   prometheus.Counter
	parseErrors   *prometheus.CounterVec
	loadDuration  prometheus.Histogram
}

// NewCollector registers the collectors with registry. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		filesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "files_loaded_total",
				Help:      "Total number of matrix files processed by the loader",
			},
			[]string{"status"},
		),
		entriesParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "entries_parsed_total",
				Help:      "Total number of entries delivered by body scans",
			},
			[]string{"field"},
		),
		blocksParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_parsed_total",
			Help:      "Total number of body blocks handed to parallel workers",
		}),
		bytesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_parsed_total",
			Help:      "Total number of body bytes read by parallel scans",
		}),
		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of failed parses by error kind",
			},
			[]string{"kind"},
		),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to parse and store one matrix file",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),
	}

	registry.MustRegister(
		c.filesLoaded,
		c.entriesParsed,
		c.blocksParsed,
		c.bytesParsed,
		c.parseErrors,
		c.loadDuration,
	)

	return c
}

// Registry returns the registry the collectors are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordFile counts one file with the given status and, unless it was
// skipped, observes how long it took.
func (c *Collector) RecordFile(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.filesLoaded.WithLabelValues(status).Inc()
	if status != StatusSkipped {
		c.loadDuration.Observe(duration.Seconds())
	}
}

// RecordScan adds the work done by one body scan.
func (c *Collector) RecordScan(field types.Field, entries uint64, blocks int, bytes int64) {
	if c == nil {
		return
	}
	c.entriesParsed.WithLabelValues(string(field)).Add(float64(entries))
	c.blocksParsed.Add(float64(blocks))
	c.bytesParsed.Add(float64(bytes))
}

// RecordParseError counts err under its kind, or "other" when err does not
// wrap a *types.ParseError.
func (c *Collector) RecordParseError(err error) {
	if c == nil || err == nil {
		return
	}
	kind := string(types.KindOf(err))
	if kind == "" {
		kind = "other"
	}
	c.parseErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
