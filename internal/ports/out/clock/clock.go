package clock

import "time"

// Clock provides time to the application.
// Using an interface enables deterministic tests via a controllable implementation.
//
// Implementations should return readings that carry Go's monotonic component when they can,
// since expiry and window arithmetic are elapsed-time comparisons.
type Clock interface {
	Now() time.Time
}
