package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the circuit breaker placed in front of a remote backend.
type BreakerConfig struct {
	Enabled bool

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the failure counts while closed. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again
// after ten seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Validate checks if the configuration values are valid.
func (c BreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ConsecutiveFailures == 0 {
		return &cache.ConfigError{Field: "ConsecutiveFailures", Message: "must be greater than 0"}
	}
	if c.Timeout <= 0 {
		return &cache.ConfigError{Field: "Timeout", Message: "must be greater than 0"}
	}
	if c.Interval < 0 {
		return &cache.ConfigError{Field: "Interval", Message: "must be non-negative"}
	}
	return nil
}

// BreakerBackend wraps a cache.Backend with a circuit breaker. While open,
// every call fails immediately, which the cache-aside layer treats as a miss,
// so an unreachable cache stops adding its timeout to each request.
type BreakerBackend struct {
	next cache.Backend
	cb   *gobreaker.CircuitBreaker
}

var _ cache.Backend = (*BreakerBackend)(nil)

// NewBreakerBackend wraps next. A disabled config returns next unchanged.
func NewBreakerBackend(name string, next cache.Backend, cfg BreakerConfig, opts ...Option) (cache.Backend, error) {
	if !cfg.Enabled {
		return next, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A caller giving up says nothing about the backend's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerBackend{next: next, cb: gobreaker.NewCircuitBreaker(settings)}, nil
}

// State reports the breaker state, for health endpoints.
func (b *BreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

type getResult struct {
	value string
	ok    bool
}

func (b *BreakerBackend) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		v, ok, err := b.next.Get(ctx, key)
		return getResult{value: v, ok: ok}, err
	})
	if err != nil {
		return "", false, b.wrap(cache.OpGet, err)
	}
	r := res.(getResult)
	return r.value, r.ok, nil
}

func (b *BreakerBackend) Set(ctx context.Context, key, value string, ttl cache.TTLPolicy) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return b.wrap(cache.OpSet, err)
}

func (b *BreakerBackend) Remove(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Remove(ctx, key)
	})
	return b.wrap(cache.OpRemove, err)
}

func (b *BreakerBackend) Exists(ctx context.Context, key string) (bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		ok, err := b.next.Exists(ctx, key)
		return ok, err
	})
	if err != nil {
		return false, b.wrap(cache.OpExists, err)
	}
	return res.(bool), nil
}

func (b *BreakerBackend) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable(op, err)
	}
	return err
}
