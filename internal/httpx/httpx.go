// Package httpx contains the HTTP delivery layer for the uidgen service.
// It maps HTTP requests onto the application service while enforcing bearer
// authentication, security headers, correlation IDs, and error translation.
// Handlers are split across files (uidgen.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haukened/uidgen/internal/app"
	"github.com/haukened/uidgen/internal/domain"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Allocate(ctx context.Context, n int) (app.Allocation, error)
	Status() int
	Initialize(ctx context.Context) (int, error)
}

// CredentialResolver maps a presented bearer secret to a credential.
// It is satisfied by *auth.Resolver.
type CredentialResolver interface {
	Resolve(secret string) (domain.Credential, error)
}

// Recorder receives metric events. It may be nil.
type Recorder interface {
	Inc(name string, delta int64)
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	Resolver  CredentialResolver
	Readiness func(context.Context) error // optional readiness probe
	Metrics   http.Handler                // optional, served at /metrics behind auth
	Recorder  Recorder                    // optional
	BuildInfo BuildInfo                   // served publicly at /api/v1/buildinfo
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// New returns a configured Handler.
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, resolver CredentialResolver, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, Resolver: resolver, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted.
// Health probes and build info are public; everything else requires an enabled bearer credential.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(CorrelationIDMiddleware)
	r.Use(h.secureHeaders)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Get("/api/v1/buildinfo", h.handleBuildInfo)

	r.Group(func(r chi.Router) {
		r.Use(h.requireBearer)
		r.Route("/api/v1/uidgen", func(r chi.Router) {
			r.Get("/", h.handleUIDs)
			r.Get("/status", h.handleStatus)
			r.Get("/initialize", h.handleInitialize)
			r.Post("/initialize", h.handleInitialize)
		})
		if h.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", h.Metrics)
		}
	})
	return r
}
