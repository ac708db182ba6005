// Package http assembles the API surface: platform middleware, operational
// endpoints, and the authenticated /api routes.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grc/internal/platform/middleware"
	"grc/pkg/platform/httputil"
)

// Registrar mounts a set of routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router needs from main.
type Deps struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator
	Registry  *prometheus.Registry

	// Handlers mounted under /api behind authentication.
	APIHandlers []Registrar

	// ReadinessChecks gate /readyz; all must pass.
	ReadinessChecks map[string]HealthChecker
}

// New builds the service router.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.ReadinessChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		for _, h := range deps.APIHandlers {
			h.Register(api)
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
