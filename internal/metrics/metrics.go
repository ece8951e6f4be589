package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes pipeline and HTTP metrics for Prometheus.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	recordsLoaded       prometheus.Counter
	rowsDropped         prometheus.Counter
	keysUnmatched       prometheus.Counter
	pointsSkipped       *prometheus.CounterVec
	mapsExported        prometheus.Counter
	runsFailed          *prometheus.CounterVec
	runDuration         prometheus.Histogram
}

// New creates a fresh registry with all geomap metrics registered
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geomap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	recordsLoaded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "records_loaded_total",
		Help:      "Records surviving load across all runs",
	})

	rowsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "rows_dropped_total",
		Help:      "Rows removed by row-drop policies",
	})

	keysUnmatched := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "keys_unmatched_total",
		Help:      "Records whose join key matched no feature",
	})

	pointsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "points_skipped_total",
		Help:      "Point records skipped during encoding",
	}, []string{"reason"})

	mapsExported := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "maps_exported_total",
		Help:      "Maps written to disk",
	})

	runsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geomap",
		Name:      "runs_failed_total",
		Help:      "Pipeline runs aborted by a fatal error",
	}, []string{"kind"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geomap",
		Name:      "run_duration_seconds",
		Help:      "Duration of pipeline runs from load to export",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		recordsLoaded,
		rowsDropped,
		keysUnmatched,
		pointsSkipped,
		mapsExported,
		runsFailed,
		runDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		recordsLoaded:       recordsLoaded,
		rowsDropped:         rowsDropped,
		keysUnmatched:       keysUnmatched,
		pointsSkipped:       pointsSkipped,
		mapsExported:        mapsExported,
		runsFailed:          runsFailed,
		runDuration:         runDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// AddLoaded counts loaded and dropped rows of one run
func (m *Metrics) AddLoaded(records, dropped int) {
	if m == nil {
		return
	}
	m.recordsLoaded.Add(float64(records))
	m.rowsDropped.Add(float64(dropped))
}

// AddUnmatched counts records that matched no feature
func (m *Metrics) AddUnmatched(n int) {
	if m == nil {
		return
	}
	m.keysUnmatched.Add(float64(n))
}

// AddPointsSkipped counts skipped point records by reason
func (m *Metrics) AddPointsSkipped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.pointsSkipped.WithLabelValues(reason).Add(float64(n))
}

// IncExported counts an exported map
func (m *Metrics) IncExported() {
	if m == nil {
		return
	}
	m.mapsExported.Inc()
}

// IncFailed counts a run aborted by an error of the given kind
func (m *Metrics) IncFailed(kind string) {
	if m == nil {
		return
	}
	m.runsFailed.WithLabelValues(kind).Inc()
}

// ObserveRunDuration observes a pipeline run duration
func (m *Metrics) ObserveRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
}

// Gatherer returns the underlying registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler exposes the Prometheus registry over HTTP
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
