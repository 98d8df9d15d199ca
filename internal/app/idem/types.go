package idem

import "github.com/Overland-East-Bay/idem-ops-api/internal/domain"

// Snapshot is the state of one window at read time.
type Snapshot struct {
	Window  domain.Window
	Present int64
	Unique  int64
	Dupes   int64

	// DupePercentage is 100*Dupes/Present, 0 when Present is 0, always within [0, 100].
	DupePercentage float64
}

// Stats is what the ops dashboard reads.
type Stats struct {
	Window5m  Snapshot
	Window60m Snapshot

	// TrackedKeys is the number of idempotency records currently held (including expired
	// records not yet swept).
	TrackedKeys int
}
