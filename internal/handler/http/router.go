package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 3 * time.Second

// Check is a named dependency probe used by /readyz.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// NewOpsRouter serves liveness, readiness and Prometheus metrics.
func NewOpsRouter(logger *slog.Logger, checks ...Check) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.HTTP)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	r.Get("/readyz", readinessHandler(checks))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}

func readinessHandler(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(checks))
		failed := false
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				slog.Warn("Readiness check failed", "check", c.Name, "error", err)
				status[c.Name] = err.Error()
				failed = true
				continue
			}
			status[c.Name] = "ok"
		}

		if failed {
			response.ServiceUnavailable(w, "Dependencies not ready", status)
			return
		}
		response.Success(w, status)
	}
}
