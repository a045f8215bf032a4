package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/sony/gobreaker"
)

// flakyBackend fails every call while down is set and counts how often it is reached.
type flakyBackend struct {
	mu    sync.Mutex
	down  bool
	calls int
}

func (f *flakyBackend) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return errors.New("dial tcp: connection refused")
	}
	return nil
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.hit(); err != nil {
		return "", false, err
	}
	return "v", true, nil
}

func (f *flakyBackend) Set(ctx context.Context, key, value string, ttl cache.TTLPolicy) error {
	return f.hit()
}

func (f *flakyBackend) Remove(ctx context.Context, key string) error { return f.hit() }

func (f *flakyBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := f.hit(); err != nil {
		return false, err
	}
	return true, nil
}

func (f *flakyBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBreakerConfig_Validate(t *testing.T) {
	if err := DefaultBreakerConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (BreakerConfig{}).Validate(); err != nil {
		t.Errorf("disabled config should always validate, got %v", err)
	}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 0
	var cfgErr *cache.ConfigError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != "ConsecutiveFailures" {
		t.Errorf("expected ConsecutiveFailures error, got %v", err)
	}
}

func TestNewBreakerBackend_DisabledReturnsNext(t *testing.T) {
	next := &flakyBackend{}
	got, err := NewBreakerBackend("cache", next, BreakerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cache.Backend(next) {
		t.Error("disabled breaker should return the wrapped backend")
	}
}

func TestBreakerBackend_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyBackend{down: true}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour

	wrapped, err := NewBreakerBackend("cache", next, cfg)
	if err != nil {
		t.Fatalf("NewBreakerBackend: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := wrapped.Get(ctx, "k"); err == nil {
			t.Fatalf("call %d: expected backend error", i)
		}
	}
	if state := wrapped.(*BreakerBackend).State(); state != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", state)
	}

	before := next.callCount()
	_, _, err = wrapped.Get(ctx, "k")
	if !IsUnavailable(err) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker should fail fast with unavailable, got %v", err)
	}
	if err := wrapped.Remove(ctx, "k"); !IsUnavailable(err) {
		t.Errorf("Remove through open breaker: %v", err)
	}
	if next.callCount() != before {
		t.Error("open breaker still reached the backend")
	}
}

func TestBreakerBackend_CancelledCallsDoNotTrip(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 1
	wrapped, err := NewBreakerBackend("cache", cancelledBackend{}, cfg)
	if err != nil {
		t.Fatalf("NewBreakerBackend: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, _, _ = wrapped.Get(context.Background(), "k")
	}
	if state := wrapped.(*BreakerBackend).State(); state != gobreaker.StateClosed {
		t.Errorf("caller cancellations tripped the breaker: %v", state)
	}
}

type cancelledBackend struct{ NoopBackend }

func (cancelledBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, context.Canceled
}

func TestBreakerBackend_PassesThroughWhenHealthy(t *testing.T) {
	next := &flakyBackend{}
	wrapped, err := NewBreakerBackend("cache", next, DefaultBreakerConfig())
	if err != nil {
		t.Fatalf("NewBreakerBackend: %v", err)
	}
	ctx := context.Background()

	v, ok, err := wrapped.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Errorf("Get = %q ok=%v err=%v", v, ok, err)
	}
	if ok, err := wrapped.Exists(ctx, "k"); err != nil || !ok {
		t.Errorf("Exists = %v err=%v", ok, err)
	}
	if err := wrapped.Set(ctx, "k", "v", cache.SlidingTTL(time.Minute)); err != nil {
		t.Errorf("Set: %v", err)
	}
}
