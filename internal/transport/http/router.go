// Package httptransport assembles the gateway's HTTP surface: the gated
// protected routes, the catch-all proxy to the upstream app, and the
// operational endpoints (/healthz, /metrics).
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiongate/internal/platform/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one collaborator. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries the router's collaborators. Gate wraps the protected routes;
// Upstream receives everything the gate allows plus all unprotected traffic.
type Deps struct {
	Logger            *slog.Logger
	Gate              func(http.Handler) http.Handler
	Upstream          http.Handler
	ProtectedPrefixes []string
	Health            map[string]HealthCheck
}

// NewRouter wires the full request surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Device)

	r.Get("/healthz", handleHealth(deps.Logger, deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Coarse protected-route matching: one exact pattern plus a descendants
	// wildcard per prefix. These patterns only decide which requests pay for
	// a gate invocation; the gate's own textual prefix check stays the
	// authority on what is protected.
	r.Group(func(g chi.Router) {
		g.Use(deps.Gate)
		for _, prefix := range deps.ProtectedPrefixes {
			g.Handle(prefix, deps.Upstream)
			g.Handle(prefix+"/*", deps.Upstream)
		}
	})

	// Everything else flows to the upstream app untouched.
	r.NotFound(deps.Upstream.ServeHTTP)

	return r
}

func handleHealth(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		slices.Sort(names)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				logger.WarnContext(ctx, "health check failed",
					"check", name,
					"error", err,
				)
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": overall,
			"checks": results,
		})
	}
}
