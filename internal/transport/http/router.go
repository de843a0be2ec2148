// Package http assembles the broker's HTTP surface: handshake routes,
// identity routes, health, and metrics, behind the shared middleware chain.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	handshakehandler "authbroker/internal/handshake/handler"
	identityhandler "authbroker/internal/identity/handler"
	"authbroker/pkg/platform/httputil"
	"authbroker/pkg/platform/middleware/metadata"
	"authbroker/pkg/platform/middleware/request"
	"authbroker/pkg/platform/middleware/requesttime"
)

// HealthChecker reports readiness of a backing dependency. Nil checkers are
// skipped.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires the full route table. requireAuth guards routes needing an
// authenticated user.
func NewRouter(
	handshake *handshakehandler.Handler,
	identity *identityhandler.Handler,
	requireAuth func(http.Handler) http.Handler,
	checkers ...HealthChecker,
) http.Handler {
	r := chi.NewRouter()

	r.Use(request.ID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthHandler(checkers))
	r.Handle("/metrics", promhttp.Handler())

	handshake.Register(r)
	identity.Register(r, requireAuth)

	return r
}

func healthHandler(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		for _, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(req.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
