package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis, *clockwork.FakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	cfg := DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	cfg.OpTimeout = time.Second

	return NewRedisBackendWithClient(client, cfg, WithClock(clock)), mr, clock
}

func TestRedisConfig_Validate(t *testing.T) {
	if err := DefaultRedisConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = ""
	var cfgErr *cache.ConfigError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != "Addr" {
		t.Errorf("expected Addr config error, got %v", err)
	}

	cfg = DefaultRedisConfig()
	cfg.OpTimeout = 0
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != "OpTimeout" {
		t.Errorf("expected OpTimeout config error, got %v", err)
	}
}

func TestRedisBackend_SetGetRemove(t *testing.T) {
	backend, mr, _ := newTestRedisBackend(t)
	ctx := context.Background()

	if _, ok, err := backend.Get(ctx, "product:id:1"); ok || err != nil {
		t.Fatalf("missing key returned ok=%v err=%v", ok, err)
	}

	if err := backend.Set(ctx, "product:id:1", `{"id":1}`, cache.TTLPolicy{Sliding: 5 * time.Minute, Absolute: time.Hour}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("inventory_product:id:1") {
		t.Fatal("key was not written under the configured prefix")
	}
	if got := mr.TTL("inventory_product:id:1"); got != 5*time.Minute {
		t.Errorf("initial ttl = %v, want 5m", got)
	}

	v, ok, err := backend.Get(ctx, "product:id:1")
	if err != nil || !ok || v != `{"id":1}` {
		t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
	}
	if exists, err := backend.Exists(ctx, "product:id:1"); err != nil || !exists {
		t.Errorf("Exists = %v err=%v", exists, err)
	}

	if err := backend.Remove(ctx, "product:id:1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := backend.Remove(ctx, "product:id:1"); err != nil {
		t.Fatalf("removing an absent key: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "product:id:1"); ok {
		t.Error("entry readable after Remove")
	}
}

func TestRedisBackend_SlidingRespectsDeadline(t *testing.T) {
	backend, mr, clock := newTestRedisBackend(t)
	ctx := context.Background()

	_ = backend.Set(ctx, "k", "v", cache.TTLPolicy{Sliding: 5 * time.Minute, Absolute: time.Hour})

	clock.Advance(58 * time.Minute)
	if _, ok, err := backend.Get(ctx, "k"); !ok || err != nil {
		t.Fatalf("Get near deadline: ok=%v err=%v", ok, err)
	}
	if got := mr.TTL("inventory_k"); got != 2*time.Minute {
		t.Errorf("slid ttl = %v, want the 2m left before the absolute deadline", got)
	}

	clock.Advance(3 * time.Minute)
	if _, ok, _ := backend.Get(ctx, "k"); ok {
		t.Error("entry served past its absolute deadline")
	}
	if mr.Exists("inventory_k") {
		t.Error("expired entry was not dropped")
	}
}

func TestRedisBackend_NaturalExpiry(t *testing.T) {
	backend, mr, _ := newTestRedisBackend(t)
	ctx := context.Background()

	_ = backend.Set(ctx, "stats", "{}", cache.AbsoluteTTL(5*time.Minute))
	if _, ok, _ := backend.Get(ctx, "stats"); !ok {
		t.Fatal("fresh entry missing")
	}
	if got := mr.TTL("inventory_stats"); got != 5*time.Minute {
		t.Errorf("absolute-only entry slid to %v", got)
	}

	mr.FastForward(5 * time.Minute)
	if _, ok, _ := backend.Get(ctx, "stats"); ok {
		t.Error("entry survived its ttl")
	}
}

func TestRedisBackend_SetReplacesWholesale(t *testing.T) {
	backend, mr, _ := newTestRedisBackend(t)
	ctx := context.Background()

	_ = backend.Set(ctx, "k", "old", cache.SlidingTTL(time.Minute))
	_ = backend.Set(ctx, "k", "new", cache.AbsoluteTTL(time.Hour))

	v, ok, _ := backend.Get(ctx, "k")
	if !ok || v != "new" {
		t.Fatalf("Get = %q ok=%v, want new", v, ok)
	}
	if got := mr.HGet("inventory_k", "sldexp"); got != "0" {
		t.Errorf("sliding policy from the previous entry leaked: %q", got)
	}
	if got := mr.TTL("inventory_k"); got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
}

func TestRedisBackend_Unavailable(t *testing.T) {
	backend, mr, _ := newTestRedisBackend(t)
	mr.Close()
	ctx := context.Background()

	_, ok, err := backend.Get(ctx, "k")
	if ok {
		t.Error("unreachable backend reported a hit")
	}
	if !IsUnavailable(err) {
		t.Errorf("expected a cache unavailable error, got %v", err)
	}
	if err := backend.Set(ctx, "k", "v", cache.SlidingTTL(time.Minute)); !IsUnavailable(err) {
		t.Errorf("Set: expected unavailable, got %v", err)
	}
	if err := backend.Remove(ctx, "k"); !IsUnavailable(err) {
		t.Errorf("Remove: expected unavailable, got %v", err)
	}
	if err := backend.Ping(ctx); !IsUnavailable(err) {
		t.Errorf("Ping: expected unavailable, got %v", err)
	}
}

func TestRedisBackend_ServiceFailsOpen(t *testing.T) {
	backend, mr, _ := newTestRedisBackend(t)
	svc, err := cache.NewService(backend)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	mr.Close()

	got, hit, err := cache.GetOrLoad(context.Background(), svc, "product:id:1", func(ctx context.Context) (int, error) {
		return 42, nil
	}, cache.DefaultConfig().TTL)
	if err != nil || hit || got != 42 {
		t.Fatalf("got %d hit=%v err=%v, want 42 from the loader", got, hit, err)
	}
}
