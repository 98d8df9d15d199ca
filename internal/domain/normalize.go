package domain

import "strings"

// NormalizeIdempotencyKey trims leading/trailing whitespace from a raw header value.
// A blank result means the request carried no key.
func NormalizeIdempotencyKey(s string) IdempotencyKey {
	return IdempotencyKey(strings.TrimSpace(s))
}
