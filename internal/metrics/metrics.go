// Package metrics defines the Prometheus collectors for resolutions, store
// failures, assignment changes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "territory_resolutions_total",
			Help: "Address resolutions by matched tier and result source",
		},
		[]string{"tier", "source"},
	)

	malformedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "territory_malformed_assignments_total",
			Help: "Resolutions that matched an assignment with no installer",
		},
		[]string{"tier"},
	)

	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "territory_store_errors_total",
			Help: "Assignment store failures surfaced to callers",
		},
		[]string{"op"},
	)

	changesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "territory_assignment_changes_total",
			Help: "Assignment writes by operation",
		},
		[]string{"op"},
	)

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "territory_batch_size",
		Help:    "Addresses per batch resolution",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7),
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "territory_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "territory_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveResolution counts one resolution. tier is empty when nothing matched.
func ObserveResolution(tier, source string) {
	if tier == "" {
		tier = "none"
	}
	resolutionsTotal.WithLabelValues(tier, source).Inc()
}

// ObserveMalformed counts a match on an assignment without an installer.
func ObserveMalformed(tier string) {
	malformedTotal.WithLabelValues(tier).Inc()
}

// ObserveStoreError counts a store failure returned to a caller.
func ObserveStoreError(op string) {
	storeErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveChange counts an assignment write.
func ObserveChange(op string, n int) {
	changesTotal.WithLabelValues(op).Add(float64(n))
}

// ObserveBatch records the size of a batch resolution.
func ObserveBatch(n int) {
	batchSize.Observe(float64(n))
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency, labelled by chi route
// pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
