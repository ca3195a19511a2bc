package port

import "context"

// IdempotencyStore de-duplicates inventory requests by client request id.
type IdempotencyStore interface {
	// SetIdempotency claims a request key, returning false if it was
	// already claimed by an earlier request.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
