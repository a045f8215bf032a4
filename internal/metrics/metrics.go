package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup results recorded on the lookups counter.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Collector holds the Prometheus metrics of the service on a private registry.
type Collector struct {
	registry *prometheus.Registry

	CacheLookups       *prometheus.CounterVec
	CacheBackendErrors *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

var _ cache.Hooks = (*Collector)(nil)

// NewCollector creates the metrics under namespace and registers them, along
// with the Go runtime and process collectors, on a new registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by view and result",
			},
			[]string{"view", "result"},
		),
		CacheBackendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "backend_errors_total",
				Help:      "Cache backend failures absorbed by the cache-aside layer",
			},
			[]string{"op"},
		),
		CacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Cache entries removed after writes",
			},
			[]string{"view"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.CacheLookups,
		c.CacheBackendErrors,
		c.CacheInvalidations,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Hit(key string) {
	c.CacheLookups.WithLabelValues(cache.ViewOf(key), ResultHit).Inc()
}

func (c *Collector) Miss(key string) {
	c.CacheLookups.WithLabelValues(cache.ViewOf(key), ResultMiss).Inc()
}

func (c *Collector) BackendError(op, _ string, _ error) {
	c.CacheBackendErrors.WithLabelValues(op).Inc()
}

func (c *Collector) Invalidated(key string) {
	c.CacheInvalidations.WithLabelValues(cache.ViewOf(key)).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
