package cacheinfra

import (
	"context"
	"strconv"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the distributed backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix is prepended to every key so several deployments can share
	// one Redis database.
	KeyPrefix string

	// OpTimeout bounds each backend call. A slow cache must degrade to a miss
	// quickly instead of holding the request.
	OpTimeout   time.Duration
	DialTimeout time.Duration
	PoolSize    int
}

// DefaultRedisConfig returns settings for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		KeyPrefix:   "inventory_",
		OpTimeout:   250 * time.Millisecond,
		DialTimeout: 2 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &cache.ConfigError{Field: "Addr", Message: "must not be empty"}
	}
	if c.DB < 0 {
		return &cache.ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.OpTimeout <= 0 {
		return &cache.ConfigError{Field: "OpTimeout", Message: "must be greater than 0"}
	}
	if c.DialTimeout < 0 {
		return &cache.ConfigError{Field: "DialTimeout", Message: "must be non-negative"}
	}
	if c.PoolSize < 0 {
		return &cache.ConfigError{Field: "PoolSize", Message: "must be non-negative"}
	}
	return nil
}

// Entries are stored as hashes holding the payload and its expiry policy so a
// hit can slide the key TTL without passing the absolute deadline.
const (
	fieldData     = "data"
	fieldAbsolute = "absexp"
	fieldSliding  = "sldexp"
)

// RedisBackend is the distributed cache.Backend.
type RedisBackend struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger
}

var _ cache.Backend = (*RedisBackend)(nil)

// NewRedisBackend dials nothing up front; go-redis connects lazily. Use Ping
// to check reachability.
func NewRedisBackend(cfg RedisConfig, opts ...Option) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return NewRedisBackendWithClient(client, cfg, opts...), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient, cfg RedisConfig, opts ...Option) *RedisBackend {
	o := applyOptions(opts)
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = DefaultRedisConfig().OpTimeout
	}
	return &RedisBackend{
		client:    client,
		prefix:    cfg.KeyPrefix,
		opTimeout: timeout,
		clock:     o.clock,
		logger:    o.logger,
	}
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + k
}

func (b *RedisBackend) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.opTimeout)
}

// Get returns the payload for key and slides its TTL when the entry has a
// sliding policy.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := b.opContext(ctx)
	defer cancel()

	k := b.key(key)
	vals, err := b.client.HMGet(ctx, k, fieldData, fieldAbsolute, fieldSliding).Result()
	if err != nil {
		return "", false, unavailable(cache.OpGet, err)
	}
	if len(vals) != 3 {
		return "", false, nil
	}

	data, ok := vals[0].(string)
	if !ok {
		return "", false, nil
	}

	sliding := time.Duration(parseMillis(vals[2])) * time.Millisecond
	if sliding <= 0 {
		return data, true, nil
	}

	var deadline time.Time
	if abs := parseMillis(vals[1]); abs > 0 {
		deadline = time.UnixMilli(abs)
	}

	ttl, alive := cache.Slide(b.clock.Now(), sliding, deadline)
	if !alive {
		if err := b.client.Del(ctx, k).Err(); err != nil {
			b.logger.Debug("redis: failed to drop expired entry", zap.String("key", key), zap.Error(err))
		}
		return "", false, nil
	}

	// PEXPIRE on a key removed in the meantime is a no-op, so sliding never
	// resurrects an invalidated entry.
	if err := b.client.PExpire(ctx, k, ttl).Err(); err != nil {
		b.logger.Debug("redis: failed to slide expiry", zap.String("key", key), zap.Error(err))
	}
	return data, true, nil
}

// Set replaces the entry for key.
func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl cache.TTLPolicy) error {
	ctx, cancel := b.opContext(ctx)
	defer cancel()

	var absolute int64
	if deadline := ttl.Deadline(b.clock.Now()); !deadline.IsZero() {
		absolute = deadline.UnixMilli()
	}

	k := b.key(key)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldData, value,
			fieldAbsolute, absolute,
			fieldSliding, ttl.Sliding.Milliseconds(),
		)
		if initial := ttl.Initial(); initial > 0 {
			pipe.PExpire(ctx, k, initial)
		}
		return nil
	})
	return unavailable(cache.OpSet, err)
}

// Remove deletes key. Deleting a missing key is not an error.
func (b *RedisBackend) Remove(ctx context.Context, key string) error {
	ctx, cancel := b.opContext(ctx)
	defer cancel()

	return unavailable(cache.OpRemove, b.client.Del(ctx, b.key(key)).Err())
}

// Exists reports whether key is present.
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := b.opContext(ctx)
	defer cancel()

	n, err := b.client.Exists(ctx, b.key(key)).Result()
	if err != nil {
		return false, unavailable(cache.OpExists, err)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := b.opContext(ctx)
	defer cancel()

	return unavailable("ping", b.client.Ping(ctx).Err())
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func parseMillis(v any) int64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
