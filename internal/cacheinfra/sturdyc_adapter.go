package cacheinfra

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/jonboulle/clockwork"
	"github.com/viccon/sturdyc"
)

// MemoryConfig holds the configuration for the in-process backend.
// It encapsulates the core sturdyc options needed for cache initialization.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// MaxTTL is the hard ceiling sturdyc applies to every entry. Per-entry
	// policies are enforced on top of it, so it must be at least as long as
	// the longest policy in use.
	MaxTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc sweeps expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns a MemoryConfig sized for a single service instance.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             cache.DefaultAbsoluteTTL,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Missing record storage and early refreshes are never enabled: negative
// results must not be cached and refreshes are driven by the cache-aside layer.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &cache.ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &cache.ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &cache.ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &cache.ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &cache.ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
	deadline  time.Time
	sliding   time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

const memoryLockStripes = 64

// MemoryBackend is the in-process cache.Backend used when no distributed
// cache is configured. Entries live in a sturdyc client; per-entry sliding
// and absolute expiry are tracked alongside the value and checked against
// the injected clock.
type MemoryBackend struct {
	client *sturdyc.Client[memoryEntry]
	clock  clockwork.Clock

	// A hit that slides the expiry rewrites the entry. Striped locks keep a
	// concurrent Remove from being undone by that rewrite.
	locks [memoryLockStripes]sync.Mutex
}

var _ cache.Backend = (*MemoryBackend)(nil)

// NewMemoryBackend validates cfg and initializes a sturdyc client with it.
func NewMemoryBackend(cfg MemoryConfig, opts ...Option) (*MemoryBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryBackend{client: client, clock: o.clock}, nil
}

func (b *MemoryBackend) lock(key string) *sync.Mutex {
	return &b.locks[xxhash.Sum64String(key)%memoryLockStripes]
}

// Get returns the value for key and slides its expiry when the entry has a
// sliding policy.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	entry, ok := b.client.Get(key)
	if !ok {
		return "", false, nil
	}

	now := b.clock.Now()
	if entry.expired(now) {
		b.client.Delete(key)
		return "", false, nil
	}

	if entry.sliding > 0 {
		ttl, alive := cache.Slide(now, entry.sliding, entry.deadline)
		if !alive {
			b.client.Delete(key)
			return "", false, nil
		}
		entry.expiresAt = now.Add(ttl)
		b.client.Set(key, entry)
	}

	return entry.value, true, nil
}

// Set stores value under key, replacing any previous entry.
func (b *MemoryBackend) Set(ctx context.Context, key, value string, ttl cache.TTLPolicy) error {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	now := b.clock.Now()
	entry := memoryEntry{
		value:    value,
		sliding:  ttl.Sliding,
		deadline: ttl.Deadline(now),
	}
	if initial := ttl.Initial(); initial > 0 {
		entry.expiresAt = now.Add(initial)
	}

	b.client.Set(key, entry)
	return nil
}

// Remove deletes key. Deleting a missing key is a no-op.
func (b *MemoryBackend) Remove(ctx context.Context, key string) error {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	b.client.Delete(key)
	return nil
}

// Exists reports whether key holds a live entry. It does not slide the expiry.
func (b *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	entry, ok := b.client.Get(key)
	if !ok {
		return false, nil
	}
	return !entry.expired(b.clock.Now()), nil
}
