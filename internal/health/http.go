package health

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reporter answers the liveness and readiness endpoints.
type Reporter interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) (Report, error)
}

// Routes builds the ops router: /healthz, /readyz and /metrics.
func Routes(reporter Reporter, mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw...)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := reporter.Liveness(req.Context()); err != nil {
			render.Status(req, http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]string{"status": StatusFail, "error": err.Error()})
			return
		}
		render.JSON(w, req, map[string]string{"status": StatusOK})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		report, err := reporter.Readiness(req.Context())
		if err != nil {
			render.Status(req, http.StatusServiceUnavailable)
		}
		render.JSON(w, req, report)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
