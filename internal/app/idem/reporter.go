package idem

import (
	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	"github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/idempotency"
)

// Reporter exposes read-only aggregated state. It never mutates the counter or the store.
type Reporter struct {
	counter *WindowedCounter
	store   idempotency.KeyStore
}

func NewReporter(counter *WindowedCounter, store idempotency.KeyStore) *Reporter {
	return &Reporter{counter: counter, store: store}
}

func (r *Reporter) GetStats() Stats {
	return Stats{
		Window5m:    r.counter.Snapshot(domain.Window5m),
		Window60m:   r.counter.Snapshot(domain.Window60m),
		TrackedKeys: r.store.Len(),
	}
}
