package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/iso8211/pkg/iso8211"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Decode metrics
	decodeTotal    *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec
	decodeRecords  prometheus.Histogram
	decodeDuration prometheus.Histogram

	catalogFiles prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iso8211_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iso8211_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iso8211_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		decodeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iso8211_decode_total",
				Help: "Total number of file decodes",
			},
			[]string{"status"},
		),

		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iso8211_decode_errors_total",
				Help: "Decode failures by error kind",
			},
			[]string{"kind"},
		),

		decodeRecords: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iso8211_decode_records",
				Help:    "Number of data records per decoded file",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		decodeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iso8211_decode_duration_seconds",
				Help:    "Whole-file decode duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		catalogFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "iso8211_catalog_files",
				Help: "Number of files stored in the catalog",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iso8211_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecode records the outcome of decoding one file
func (m *Metrics) RecordDecode(file *iso8211.InterchangeFile, err error, duration time.Duration) {
	m.decodeDuration.Observe(duration.Seconds())
	if err != nil {
		m.decodeTotal.WithLabelValues(statusError).Inc()
		kind := "unknown"
		if k, ok := iso8211.KindOf(err); ok {
			kind = k.String()
		}
		m.decodeErrors.WithLabelValues(kind).Inc()
		return
	}
	m.decodeTotal.WithLabelValues(statusSuccess).Inc()
	m.decodeRecords.Observe(float64(len(file.DataRecords)))
}

// SetCatalogFiles updates the catalog size gauge
func (m *Metrics) SetCatalogFiles(n int) {
	m.catalogFiles.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
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
