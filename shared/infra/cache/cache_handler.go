package cache

import "time"

// CacheHandler abstracts the shared KV store used across the system. SetNX
// is the primitive the idempotency gate depends on for atomic, single-winner
// claims (spec §4.1) — Get/Set/Delete alone cannot express set-if-absent
// without a race between the two calls.
type CacheHandler interface {
	Get(key string) (string, error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	// SetNX sets key to value only if it does not already exist, atomically.
	// Returns false (no error) if the key was already present.
	SetNX(key string, value string, ttl time.Duration) (bool, error)
}
