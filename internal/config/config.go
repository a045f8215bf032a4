package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/internal/cacheinfra"
	"github.com/goliatone/go-inventory-cache/internal/storage"
	"github.com/goliatone/go-inventory-cache/inventory"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVENTORY_"

// Cache backend selectors.
const (
	BackendAuto   = "auto"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Seed loads the sample catalog into an empty database on startup.
	Seed bool `yaml:"seed"`
}

type CacheConfig struct {
	// Backend is one of auto, memory, redis or none. auto picks redis when
	// redis.addr is set and memory otherwise.
	Backend     string        `yaml:"backend"`
	Serializer  string        `yaml:"serializer"`
	SlidingTTL  time.Duration `yaml:"sliding_ttl"`
	AbsoluteTTL time.Duration `yaml:"absolute_ttl"`
	StatsTTL    time.Duration `yaml:"stats_ttl"`

	Redis   RedisConfig   `yaml:"redis"`
	Memory  MemoryConfig  `yaml:"memory"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefix   string        `yaml:"key_prefix"`
	OpTimeout   time.Duration `yaml:"op_timeout"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	PoolSize    int           `yaml:"pool_size"`
}

type MemoryConfig struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it: SQLite
// on a local file and the in-process cache.
func Default() Config {
	ttl := cache.DefaultConfig().TTL
	redis := cacheinfra.DefaultRedisConfig()
	memory := cacheinfra.DefaultMemoryConfig()
	breaker := cacheinfra.DefaultBreakerConfig()

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: storage.DriverSQLite,
			DSN:    "file:inventory.db?_busy_timeout=5000",
			Seed:   true,
		},
		Cache: CacheConfig{
			Backend:     BackendAuto,
			Serializer:  cache.SerializerJSON,
			SlidingTTL:  ttl.Sliding,
			AbsoluteTTL: ttl.Absolute,
			StatsTTL:    inventory.DefaultStatsTTL,
			Redis: RedisConfig{
				KeyPrefix:   redis.KeyPrefix,
				OpTimeout:   redis.OpTimeout,
				DialTimeout: redis.DialTimeout,
			},
			Memory: MemoryConfig{
				Capacity:           memory.Capacity,
				NumShards:          memory.NumShards,
				EvictionPercentage: memory.EvictionPercentage,
			},
			Breaker: BreakerConfig{
				Enabled:             breaker.Enabled,
				MaxRequests:         breaker.MaxRequests,
				Interval:            breaker.Interval,
				Timeout:             breaker.Timeout,
				ConsecutiveFailures: breaker.ConsecutiveFailures,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path when
// path is not empty, and INVENTORY_* environment variables, in that order.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Cache.Serializer = strings.ToLower(strings.TrimSpace(c.Cache.Serializer))
}

// Validate checks every section. Cache sections that the selected backend
// does not use are not validated.
func (c Config) Validate() error {
	err := validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
			validation.Field(&c.Server.ShutdownTimeout, validation.Required, validation.Min(time.Duration(0))),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required,
				validation.In(storage.DriverSQLite, storage.DriverPostgres)),
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"cache": validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.Backend, validation.Required,
				validation.In(BackendAuto, BackendMemory, BackendRedis, BackendNone)),
			validation.Field(&c.Cache.StatsTTL, validation.Min(time.Duration(0))),
		),
	}.Filter()
	if err != nil {
		return err
	}

	if err := c.Cache.CacheOptions().Validate(); err != nil {
		return err
	}
	switch c.Cache.ResolvedBackend() {
	case BackendRedis:
		if err := c.Cache.RedisOptions().Validate(); err != nil {
			return err
		}
		if err := c.Cache.BreakerOptions().Validate(); err != nil {
			return err
		}
	case BackendMemory:
		if err := c.Cache.MemoryOptions().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ResolvedBackend turns auto into the concrete backend.
func (c CacheConfig) ResolvedBackend() string {
	if c.Backend == BackendAuto || c.Backend == "" {
		if c.Redis.Addr != "" {
			return BackendRedis
		}
		return BackendMemory
	}
	return c.Backend
}

// CacheOptions returns the serializer and TTL policy.
func (c CacheConfig) CacheOptions() cache.Config {
	return cache.Config{
		Serializer: c.Serializer,
		TTL:        cache.TTLPolicy{Sliding: c.SlidingTTL, Absolute: c.AbsoluteTTL},
	}
}

func (c CacheConfig) RedisOptions() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:        c.Redis.Addr,
		Username:    c.Redis.Username,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		KeyPrefix:   c.Redis.KeyPrefix,
		OpTimeout:   c.Redis.OpTimeout,
		DialTimeout: c.Redis.DialTimeout,
		PoolSize:    c.Redis.PoolSize,
	}
}

func (c CacheConfig) MemoryOptions() cacheinfra.MemoryConfig {
	maxTTL := c.AbsoluteTTL
	if c.StatsTTL > maxTTL {
		maxTTL = c.StatsTTL
	}
	if c.SlidingTTL > maxTTL {
		maxTTL = c.SlidingTTL
	}
	return cacheinfra.MemoryConfig{
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		MaxTTL:             maxTTL,
		EvictionPercentage: c.Memory.EvictionPercentage,
		EvictionInterval:   c.Memory.EvictionInterval,
	}
}

func (c CacheConfig) BreakerOptions() cacheinfra.BreakerConfig {
	return cacheinfra.BreakerConfig{
		Enabled:             c.Breaker.Enabled,
		MaxRequests:         c.Breaker.MaxRequests,
		Interval:            c.Breaker.Interval,
		Timeout:             c.Breaker.Timeout,
		ConsecutiveFailures: c.Breaker.ConsecutiveFailures,
	}
}

// ErrInvalidEnv is wrapped by errors caused by a malformed override.
var ErrInvalidEnv = errors.New("invalid environment override")
