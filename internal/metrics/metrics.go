// Package metrics holds the Prometheus collectors shared by the services and
// the HTTP layer. All collectors live on the default registry.
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
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_api_requests_total",
		Help: "API requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice_api_duration_seconds",
		Help:    "API request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	InvoiceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_status_transitions_total",
		Help: "Invoice lifecycle transitions.",
	}, []string{"from", "to"})

	DuplicateConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_duplicate_conflicts_total",
		Help: "Writes stopped by the duplicate invoice number check, by detection path.",
	}, []string{"path"})

	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_extractions_total",
		Help: "Extraction service calls by tool and outcome.",
	}, []string{"tool", "outcome"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice_extraction_duration_seconds",
		Help:    "Extraction service latency by tool.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"tool"})

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "invoice_realtime_subscribers",
		Help: "Active change-feed subscriptions.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by the matched chi
// route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
