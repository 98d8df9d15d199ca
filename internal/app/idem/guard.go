package idem

import (
	"context"
	"fmt"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	"github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/idempotency"
)

const (
	CodeKeyStoreFailure = "IDEMPOTENCY_KEYSTORE_FAILURE"
	CodeGuardPanic      = "IDEMPOTENCY_GUARD_PANIC"
)

// Guard classifies inbound requests by their idempotency key and feeds the windowed counter.
type Guard struct {
	store   idempotency.KeyStore
	counter *WindowedCounter
}

func NewGuard(store idempotency.KeyStore, counter *WindowedCounter) *Guard {
	return &Guard{store: store, counter: counter}
}

// Classify inspects one raw key value (the header value, possibly empty).
//
// It fails open: on any internal failure, including a panic, it returns an absent observation
// together with the error so the caller can log it and carry on with the request.
func (g *Guard) Classify(ctx context.Context, rawKey string) (obs domain.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			obs = domain.Observation{Classification: domain.ClassAbsent}
			err = &Error{
				Code:    CodeGuardPanic,
				Message: fmt.Sprintf("idempotency guard panic: %v", r),
			}
		}
	}()

	key := domain.NormalizeIdempotencyKey(rawKey)
	if key == "" {
		return domain.Observation{Classification: domain.ClassAbsent}, nil
	}

	res, err := g.store.Observe(ctx, key)
	if err != nil {
		return domain.Observation{Classification: domain.ClassAbsent}, &Error{
			Code:    CodeKeyStoreFailure,
			Message: "idempotency key store unavailable",
			Err:     err,
		}
	}

	obs = domain.Observation{Key: key, Classification: domain.ClassDupe}
	if res.WasNew {
		obs.Classification = domain.ClassUnique
	}
	g.counter.Record(obs.Classification)
	return obs, nil
}
