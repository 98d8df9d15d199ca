package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
)

// Record is what the store remembers about a key between observations.
type Record struct {
	Key         domain.IdempotencyKey
	FirstSeenAt time.Time
	HitCount    int
}

// Result is returned by Observe.
type Result struct {
	// WasNew is true when the key was absent or expired and a fresh record was inserted.
	WasNew bool
	Record Record
}

// KeyStore answers "have I seen this key before, and if not, record it" as one atomic step.
//
// Implementations must be safe for concurrent use: for a single key, exactly one of any set of
// racing Observe calls may report WasNew=true.
type KeyStore interface {
	Observe(ctx context.Context, key domain.IdempotencyKey) (Result, error)
	// Sweep evicts every expired record and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	// Len is the number of records currently held, expired or not.
	Len() int
	// Reset drops every record.
	Reset()
}
