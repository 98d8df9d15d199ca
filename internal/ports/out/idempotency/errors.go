package idempotency

import "errors"

// ErrEmptyKey is returned when Observe is called without a key. Absent keys are classified by
// the caller and must never reach the store.
var ErrEmptyKey = errors.New("idempotency: empty key")
