package cache

import (
	"context"
)

// Backend is the capability set the cache-aside layer needs from a key/value store.
// Implementations live in internal/cacheinfra and are selected once at startup.
//
// Get reports a missing key with ok=false and a nil error. Any non-nil error is a
// backend failure and is treated by Service as a miss.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl TTLPolicy) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Entity is the contract every cacheable record satisfies so the cache layer
// never has to discover identifiers or deletion flags at runtime. Values that
// report SoftDeleted are neither stored nor served.
type Entity interface {
	EntityID() int64
	SoftDeleted() bool
}
