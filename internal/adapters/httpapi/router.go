package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is what the router needs from the idempotency subsystem.
type Service interface {
	Classifier
	StatsReader
}

type RouterOptions struct {
	// AdminKey gates /api/ops/idem/*. Empty rejects every ops request.
	AdminKey string

	// Downstream receives every other request after the guard has run. Nil means the service
	// only serves /healthz and the ops endpoints.
	Downstream http.Handler

	// DisableRequestLog turns off chi's request logger (tests).
	DisableRequestLog bool
}

// NewRouter constructs the HTTP router.
//
// Ops routes are authorized before the guard runs, so rejected requests never reach the key
// store or the counters.
func NewRouter(svc Service, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !opts.DisableRequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated and unguarded (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	guard := NewGuardMiddleware(svc)

	r.Route("/api/ops/idem", func(r chi.Router) {
		r.Use(NewAdminKeyMiddleware(opts.AdminKey))
		r.Get("/stats", handleStats(svc))
		r.With(guard).Post("/test", handleGuardTest)
	})

	if opts.Downstream != nil {
		r.With(guard).Handle("/*", opts.Downstream)
	}

	return r
}
