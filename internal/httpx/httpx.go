// Package httpx contains the HTTP delivery layer for the upid service. It maps
// HTTP requests onto the application service, applies security headers and
// correlation ids, and translates service errors into JSON responses.
// Handlers are split across files (upid.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haukened/upid/internal/app"
)

// DefaultMaxBody bounds JSON request bodies.
const DefaultMaxBody = 1 << 10

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Issue(ctx context.Context, prefix string) (app.Record, error)
	Inspect(ctx context.Context, raw string) (app.Details, error)
	List(ctx context.Context, prefix string, limit int) ([]app.Record, error)
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	MaxBody   int64                       // request body limit for POST /api/upid
	Readiness func(context.Context) error // optional readiness probe
	Metrics   http.Handler                // optional /metrics handler
}

// New returns a configured Handler.
// svc: application service port implementation.
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: DefaultMaxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the middleware chain applied.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationIDMiddleware)
	r.Use(secureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Post("/api/upid", h.handleIssue)
	r.Get("/api/upid", h.handleList)
	r.Get("/api/upid/{id}", h.handleInspect)
	return r
}
