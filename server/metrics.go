package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menulive/menulive/sync"
)

// metrics bundles the server's Prometheus collectors on a private registry.
type metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

func newMetrics(stats func() sync.Stats) *metrics {
	registry := prometheus.NewRegistry()
	m := &metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "menulive_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menulive_view_cache_hits_total",
			Help: "Rendered-view cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menulive_view_cache_misses_total",
			Help: "Rendered-view cache misses.",
		}),
	}

	registry.MustRegister(
		m.requestDuration,
		m.cacheHits,
		m.cacheMisses,
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "menulive_open_subscriptions",
			Help: "Live document subscriptions currently open.",
		}, func() float64 { return float64(stats().OpenWatches) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "menulive_views_published_total",
			Help: "View updates published by the sync controller.",
		}, func() float64 { return float64(stats().PublishedTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "menulive_sync_events_total",
			Help: "Subscription deliveries handled by the sync controller.",
		}, func() float64 { return float64(stats().EventsTotal) }),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument wraps a handler with request-duration observation.
func (m *metrics) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.requestDuration.
			WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
