package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module discovery results
const (
	ResultLoaded            = "loaded"
	ResultNotModule         = "not_module"
	ResultBadFormat         = "bad_format"
	ResultMissingDependency = "missing_dependency"
	ResultFailed            = "failed"
)

// Cache operation results
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale"
	CacheLocked  = "locked"
	CacheError   = "error"
	CacheWritten = "written"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Discovery metrics
	ModulesDiscoveredTotal *prometheus.CounterVec
	DeclarationsRejected   *prometheus.CounterVec
	ExtensionsRegistered   prometheus.Gauge
	ExtensionPoints        prometheus.Gauge
	BuildDuration          prometheus.Histogram

	// Cache metrics
	CacheOperationsTotal *prometheus.CounterVec

	// Instantiation metrics
	InstantiationsTotal *prometheus.CounterVec

	// HTTP metrics for the admin server
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModulesDiscoveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_modules_discovered_total",
				Help: "Total number of candidate module files by load result",
			},
			[]string{"result"},
		),
		DeclarationsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_declarations_rejected_total",
				Help: "Total number of malformed point or extension declarations",
			},
			[]string{"kind"},
		),
		ExtensionsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "extpoint_extensions_registered",
				Help: "Number of extensions in the built registry",
			},
		),
		ExtensionPoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "extpoint_extension_points",
				Help: "Number of extension points in the built registry",
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extpoint_registry_build_duration_seconds",
				Help:    "Registry build duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		CacheOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_cache_operations_total",
				Help: "Total number of metadata cache operations",
			},
			[]string{"operation", "result"},
		),
		InstantiationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_instantiations_total",
				Help: "Total number of extension instantiation attempts",
			},
			[]string{"point", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extpoint_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.ModulesDiscoveredTotal,
		m.DeclarationsRejected,
		m.ExtensionsRegistered,
		m.ExtensionPoints,
		m.BuildDuration,
		m.CacheOperationsTotal,
		m.InstantiationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// RecordModule counts one candidate module file
func (m *Metrics) RecordModule(result string) {
	if m == nil {
		return
	}
	m.ModulesDiscoveredTotal.WithLabelValues(result).Inc()
}

// RecordRejected counts one dropped declaration ("point" or "extension")
func (m *Metrics) RecordRejected(kind string) {
	if m == nil {
		return
	}
	m.DeclarationsRejected.WithLabelValues(kind).Inc()
}

// RecordCache counts one cache read or write
func (m *Metrics) RecordCache(operation, result string) {
	if m == nil {
		return
	}
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordInstantiation counts one constructor call outcome
func (m *Metrics) RecordInstantiation(point string, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.InstantiationsTotal.WithLabelValues(point, status).Inc()
}

// ObserveBuild records a completed registry build
func (m *Metrics) ObserveBuild(duration time.Duration, extensions, points int) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(duration.Seconds())
	m.ExtensionsRegistered.Set(float64(extensions))
	m.ExtensionPoints.Set(float64(points))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
