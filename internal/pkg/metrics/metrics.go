package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch runs partitioned by final status: success, partial, rejected
	batchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_batch_runs_total",
			Help: "Total number of payroll batch runs",
		},
		[]string{"status"},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payroll_batch_duration_seconds",
			Help:    "Payroll batch run latencies in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Per-courier outcomes: success, skipped, failed
	courierOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_courier_outcomes_total",
			Help: "Courier calculation outcomes partitioned by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	payrollTotalAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payroll_total_amount",
			Help: "Total payroll of the last completed batch per organization",
		},
		[]string{"organization_id"},
	)

	// Ops HTTP requests partitioned by method, route and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)
)

const (
	BatchSuccess  = "success"
	BatchPartial  = "partial"
	BatchRejected = "rejected"
)

func ObserveBatch(status string, elapsed time.Duration) {
	batchRunsTotal.WithLabelValues(status).Inc()
	batchDuration.Observe(elapsed.Seconds())
}

func IncCourierOutcome(outcome, reason string) {
	courierOutcomesTotal.WithLabelValues(outcome, reason).Inc()
}

func SetPayrollTotal(organizationID string, amount float64) {
	payrollTotalAmount.WithLabelValues(organizationID).Set(amount)
}

// HTTP records request counts using the matched chi route pattern to keep label cardinality low.
func HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
