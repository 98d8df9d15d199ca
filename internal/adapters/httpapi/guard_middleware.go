package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
)

const (
	HeaderIdempotencyKey         = "X-Idempotency-Key"
	HeaderIdempotencyKeyStandard = "Idempotency-Key"

	HeaderObserved = "x-idempotency-observed"
	HeaderWindow   = "x-idempotency-window"
)

// Classifier is the slice of the idempotency service the guard middleware needs.
type Classifier interface {
	Classify(ctx context.Context, rawKey string) (domain.Observation, error)
}

// NewGuardMiddleware classifies every request by its idempotency key, tags the response with
// the observation headers and stores the observation in the request context.
//
// It never blocks the request: classification failures are logged and the request continues
// as if it carried no key.
func NewGuardMiddleware(c Classifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			obs := classify(c, r)

			w.Header().Set(HeaderObserved, obs.ObservedHeaderValue())
			w.Header().Set(HeaderWindow, domain.WindowHeaderValue())

			next.ServeHTTP(w, r.WithContext(WithObservation(r.Context(), obs)))
		})
	}
}

func classify(c Classifier, r *http.Request) (obs domain.Observation) {
	defer func() {
		if rec := recover(); rec != nil {
			logGuardFailure(r, fmt.Errorf("panic: %v", rec))
			obs = domain.Observation{Classification: domain.ClassAbsent}
		}
	}()

	obs, err := c.Classify(r.Context(), idempotencyKeyHeader(r))
	if err != nil {
		logGuardFailure(r, err)
		return domain.Observation{Classification: domain.ClassAbsent}
	}
	return obs
}

// idempotencyKeyHeader prefers X-Idempotency-Key and falls back to the standard header name.
func idempotencyKeyHeader(r *http.Request) string {
	if v := r.Header.Get(HeaderIdempotencyKey); strings.TrimSpace(v) != "" {
		return v
	}
	return r.Header.Get(HeaderIdempotencyKeyStandard)
}

func logGuardFailure(r *http.Request, err error) {
	log.Printf("idempotency guard failed open: request_id=%s method=%s path=%s err=%v",
		middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
}
