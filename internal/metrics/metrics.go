package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeIdentical = "identical"
	OutcomeDifferent = "different"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	ComparisonsTotal    *prometheus.CounterVec
	ComparisonDuration  prometheus.Histogram
	SlidesComparedTotal prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ComparisonsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slidediff_comparisons_total",
			Help: "The total number of deck comparisons by outcome",
		}, []string{"outcome"}),
		ComparisonDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "slidediff_comparison_duration_seconds",
			Help:    "Time spent extracting and comparing two decks",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SlidesComparedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "slidediff_slides_compared_total",
			Help: "The total number of slide positions compared",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slidediff_http_requests_total",
			Help: "The total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slidediff_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObserveComparison records one finished comparison.
func (m *Metrics) ObserveComparison(res *models.ComparisonResult, elapsed time.Duration) {
	outcome := OutcomeDifferent
	switch {
	case res == nil || res.Error:
		outcome = OutcomeError
	case res.Identical:
		outcome = OutcomeIdentical
	}
	m.ComparisonsTotal.WithLabelValues(outcome).Inc()
	m.ComparisonDuration.Observe(elapsed.Seconds())
	if res != nil {
		m.SlidesComparedTotal.Add(float64(res.SlidesCompared))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and their latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.statusCode)
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
	})
}
