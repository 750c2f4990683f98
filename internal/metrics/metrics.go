// Package metrics holds the Prometheus collectors for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logoforge",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logoforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "logoforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	generationVariants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logoforge",
			Subsystem: "generation",
			Name:      "variants_total",
			Help:      "Image variant attempts by outcome.",
		},
		[]string{"outcome"}, // success, failed, skipped
	)

	generationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logoforge",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Generation requests by final outcome.",
		},
		[]string{"outcome"}, // success, partial, empty, billing_halt, error
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "logoforge",
			Subsystem: "generation",
			Name:      "run_duration_seconds",
			Help:      "End-to-end duration of generation requests.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
		},
	)

	creditsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logoforge",
			Subsystem: "credits",
			Name:      "consumed_total",
			Help:      "Total credits deducted from user allowances.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		generationVariants,
		generationRuns,
		generationDuration,
		creditsConsumed,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordVariant records one image variant attempt.
func RecordVariant(outcome string) {
	generationVariants.WithLabelValues(outcome).Inc()
}

// RecordGenerationRun records a finished generation request.
func RecordGenerationRun(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	generationRuns.WithLabelValues(outcome).Inc()
	generationDuration.Observe(duration.Seconds())
}

// RecordCreditsConsumed adds to the consumed-credits counter.
func RecordCreditsConsumed(amount int) {
	if amount > 0 {
		creditsConsumed.Add(float64(amount))
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

// Flush must be forwarded or SSE responses stall behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// canonicalPath collapses resource identifiers so metric cardinality stays
// bounded. /api/icons/123 becomes /api/icons/:id.
func canonicalPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeID(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func looksLikeID(s string) bool {
	if len(s) >= 16 && strings.Count(s, "-") >= 2 {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
