package domain

// IdempotencyKey is the client-supplied idempotency token.
// We model it as opaque: its format is controlled by the caller and never validated here.
type IdempotencyKey string
