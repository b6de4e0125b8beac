// Package metrics exposes Prometheus collectors for the response cache, the
// render pipeline and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "isorender").
	Namespace string
	// Registry receives the collectors and backs Handler. A fresh registry
	// is created when nil.
	Registry *prometheus.Registry
	// Runtime adds the Go and process collectors.
	Runtime bool
}

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge
	cacheWeight    prometheus.Gauge

	renderDuration prometheus.Histogram
	renderRounds   prometheus.Histogram
	rendersTotal   *prometheus.CounterVec

	requestsTotal *prometheus.CounterVec
}

// New registers the collectors.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "isorender"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Runtime {
		cfg.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result (hit, miss, bypass)",
		}, []string{"result"}),

		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted to keep the cache within its byte budget",
		}),

		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently cached",
		}),

		cacheWeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "weight_bytes",
			Help:      "Summed weight of cached entries in bytes",
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent rendering a page, all rounds included",
			Buckets:   prometheus.DefBuckets,
		}),

		renderRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "render",
			Name:      "rounds",
			Help:      "Render rounds needed per page",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 21, 50},
		}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "render",
			Name:      "total",
			Help:      "Renders by resulting HTTP status",
		}, []string{"status"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, status and cache result",
		}, []string{"method", "status", "cache"}),
	}
}

// ObserveRender records one render.
func (m *Metrics) ObserveRender(rounds int, duration time.Duration, status int) {
	m.renderDuration.Observe(duration.Seconds())
	m.renderRounds.Observe(float64(rounds))
	m.rendersTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// CacheLookup records a cache lookup result: "hit", "miss" or "bypass".
func (m *Metrics) CacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEvicted records evicted entries.
func (m *Metrics) CacheEvicted(n int) {
	m.cacheEvictions.Add(float64(n))
}

// SetCacheSize publishes the current cache occupancy.
func (m *Metrics) SetCacheSize(entries int, weight int64) {
	m.cacheEntries.Set(float64(entries))
	m.cacheWeight.Set(float64(weight))
}

// ObserveRequest records one HTTP response.
func (m *Metrics) ObserveRequest(method string, status int, cacheResult string) {
	if cacheResult == "" {
		cacheResult = "none"
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status), cacheResult).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the backing registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
