package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
)

type observationKey struct{}

func WithObservation(ctx context.Context, obs domain.Observation) context.Context {
	return context.WithValue(ctx, observationKey{}, obs)
}

// ObservationFromContext returns what the idempotency guard decided for this request.
// ok is false when the request did not pass through the guard.
func ObservationFromContext(ctx context.Context) (domain.Observation, bool) {
	v, ok := ctx.Value(observationKey{}).(domain.Observation)
	return v, ok
}
