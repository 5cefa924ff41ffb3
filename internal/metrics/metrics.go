// Package metrics holds the Prometheus instruments for the trace service.
// The collector owns its registry so tests never fight over global state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipetrace"

// Collector bundles every instrument the service records into.
type Collector struct {
	registry *prometheus.Registry

	// Cache behaviour
	CacheHits    *prometheus.CounterVec
	CacheMisses  prometheus.Counter
	SaveFailures prometheus.Counter

	// Pipeline timings
	BuildDuration prometheus.Histogram
	TraceDuration prometheus.Histogram

	// Work counters
	GraphBuilds prometheus.Counter
	Traces      *prometheus.CounterVec

	// Live feedback stream
	Subscribers prometheus.Gauge
}

// NewCollector builds and registers the full instrument set.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Graph cache hits by candidate origin",
		},
		[]string{"origin"},
	)
	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Graph lookups that fell through every cache candidate",
		},
	)
	saveFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_save_failures_total",
			Help:      "Cache save attempts where no candidate accepted the payload",
		},
	)
	buildDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_build_duration_seconds",
			Help:      "Time to build a graph from its record sources",
			Buckets:   prometheus.DefBuckets,
		},
	)
	traceDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trace_duration_seconds",
			Help:      "Time to run one trace over a loaded graph",
			Buckets:   prometheus.DefBuckets,
		},
	)
	graphBuilds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_builds_total",
			Help:      "Graphs rebuilt from record sources",
		},
	)
	traces := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traces_total",
			Help:      "Completed traces by direction",
		},
		[]string{"direction"},
	)
	subscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feedback_subscribers",
			Help:      "Connected live feedback subscribers",
		},
	)

	registry.MustRegister(
		cacheHits,
		cacheMisses,
		saveFailures,
		buildDuration,
		traceDuration,
		graphBuilds,
		traces,
		subscribers,
	)

	return &Collector{
		registry:      registry,
		CacheHits:     cacheHits,
		CacheMisses:   cacheMisses,
		SaveFailures:  saveFailures,
		BuildDuration: buildDuration,
		TraceDuration: traceDuration,
		GraphBuilds:   graphBuilds,
		Traces:        traces,
		Subscribers:   subscribers,
	}
}

// Handler serves this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the backing registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// The recording helpers below are nil-safe so callers that run without
// metrics (the CLI) can share the service code path.

func (c *Collector) CacheHit(origin string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(origin).Inc()
}

func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

func (c *Collector) SaveFailed() {
	if c == nil {
		return
	}
	c.SaveFailures.Inc()
}

func (c *Collector) BuildObserved(d time.Duration) {
	if c == nil {
		return
	}
	c.GraphBuilds.Inc()
	c.BuildDuration.Observe(d.Seconds())
}

func (c *Collector) TraceObserved(direction string, d time.Duration) {
	if c == nil {
		return
	}
	c.Traces.WithLabelValues(direction).Inc()
	c.TraceDuration.Observe(d.Seconds())
}

func (c *Collector) SubscriberConnected() {
	if c == nil {
		return
	}
	c.Subscribers.Inc()
}

func (c *Collector) SubscriberGone() {
	if c == nil {
		return
	}
	c.Subscribers.Dec()
}
