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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	patientsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patients_created_total",
			Help: "Total number of patient records created",
		},
	)

	analysesRunTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prescription_analyses_total",
			Help: "Total number of prescription analysis runs",
		},
	)

	analysisCasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_analysis_cases_total",
			Help: "Analyzed cases by match status",
		},
		[]string{"status"},
	)

	recommendationsServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Recommendations served by provider and status",
		},
		[]string{"provider", "status"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit trail entries recorded",
		},
	)

	emrOrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_orders_total",
			Help: "EMR orders by status transition",
		},
		[]string{"status"},
	)
)

// Middleware records request counts and latencies per route
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route pattern instead of raw path keeps label cardinality bounded
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the /metrics scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPatientCreated increments the patient creation counter
func RecordPatientCreated() {
	patientsCreatedTotal.Inc()
}

// RecordAnalysisRun records an analysis run and its per-case outcomes
func RecordAnalysisRun(exact, partial, noMatch, noRecommendation int) {
	analysesRunTotal.Inc()
	analysisCasesTotal.WithLabelValues("exact_match").Add(float64(exact))
	analysisCasesTotal.WithLabelValues("partial_match").Add(float64(partial))
	analysisCasesTotal.WithLabelValues("no_match").Add(float64(noMatch))
	analysisCasesTotal.WithLabelValues("no_recommendation").Add(float64(noRecommendation))
}

// RecordRecommendation records a recommendation served by a provider
func RecordRecommendation(provider, status string) {
	recommendationsServedTotal.WithLabelValues(provider, status).Inc()
}

// RecordAuditEntry increments the audit entry counter
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordEMROrder records an EMR order status transition
func RecordEMROrder(status string) {
	emrOrdersTotal.WithLabelValues(status).Inc()
}
