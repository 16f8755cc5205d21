// Package ttlstore holds short-lived one-time values (OAuth state, account
// linking codes) behind a small capability instead of process globals.
package ttlstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for missing or expired keys.
var ErrNotFound = errors.New("ttlstore: key not found")

// Store is a string key/value store with per-key expiry.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and deletes the key in one step, so a one-time
	// code can be redeemed at most once.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
