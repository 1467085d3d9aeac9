// Package onetime stores artifacts that may be redeemed exactly once, such as
// authorization codes and permission tickets.
package onetime

import (
	"context"
	"time"
)

// Store keeps values until they are taken or expire. Take is atomic: of two concurrent
// Take calls for the same key at most one gets the value.
type Store[T any] interface {
	Put(ctx context.Context, key string, value T, ttl time.Duration) error
	// Take removes and returns the value. ok is false when the key is absent,
	// already taken or expired.
	Take(ctx context.Context, key string) (value T, ok bool, err error)
}
