package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-inventory-cache/internal/storage"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadWithEnv("", env(nil))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Database.Driver != storage.DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if got := cfg.Cache.ResolvedBackend(); got != BackendMemory {
		t.Errorf("ResolvedBackend() = %q, want memory", got)
	}
	if cfg.Cache.StatsTTL != 5*time.Minute {
		t.Errorf("StatsTTL = %v, want 5m", cfg.Cache.StatsTTL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  driver: Postgres
  dsn: postgres://inventory@localhost/inventory?sslmode=disable
  seed: false
cache:
  serializer: msgpack
  sliding_ttl: 2m
  redis:
    addr: cache:6379
    key_prefix: staging_
log:
  level: debug
`)

	cfg, err := LoadWithEnv(path, env(nil))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.Driver != storage.DriverPostgres || cfg.Database.Seed {
		t.Errorf("unexpected database section %+v", cfg.Database)
	}
	if cfg.Cache.Serializer != "msgpack" || cfg.Cache.SlidingTTL != 2*time.Minute {
		t.Errorf("unexpected cache section %+v", cfg.Cache)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Cache.AbsoluteTTL != time.Hour {
		t.Errorf("AbsoluteTTL = %v, want the 1h default", cfg.Cache.AbsoluteTTL)
	}
	if got := cfg.Cache.ResolvedBackend(); got != BackendRedis {
		t.Errorf("ResolvedBackend() = %q, want redis when an address is set", got)
	}
	if got := cfg.Cache.RedisOptions().KeyPrefix; got != "staging_" {
		t.Errorf("KeyPrefix = %q", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")

	cfg, err := LoadWithEnv(path, env(map[string]string{
		"INVENTORY_SERVER_ADDR":     ":7070",
		"INVENTORY_CACHE_BACKEND":   "None",
		"INVENTORY_CACHE_STATS_TTL": "30s",
		"INVENTORY_DATABASE_SEED":   "false",
		"INVENTORY_REDIS_DB":        "3",
		"INVENTORY_LOG_DEVELOPMENT": "true",
	}))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want the env value", cfg.Server.Addr)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.StatsTTL != 30*time.Second {
		t.Errorf("StatsTTL = %v", cfg.Cache.StatsTTL)
	}
	if cfg.Database.Seed || cfg.Cache.Redis.DB != 3 || !cfg.Log.Development {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestMalformedEnvIsRejected(t *testing.T) {
	_, err := LoadWithEnv("", env(map[string]string{"INVENTORY_CACHE_SLIDING_TTL": "soon"}))
	if !errors.Is(err, ErrInvalidEnv) {
		t.Fatalf("expected ErrInvalidEnv, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown serializer", func(c *Config) { c.Cache.Serializer = "xml" }},
		{"no ttl", func(c *Config) { c.Cache.SlidingTTL, c.Cache.AbsoluteTTL = 0, 0 }},
		{"redis without address", func(c *Config) { c.Cache.Backend = BackendRedis }},
		{"memory without capacity", func(c *Config) { c.Cache.Memory.Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			cfg.normalize()
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestMemoryOptionsCoverLongestTTL(t *testing.T) {
	cfg := Default()
	cfg.Cache.StatsTTL = 2 * time.Hour

	if got := cfg.Cache.MemoryOptions().MaxTTL; got != 2*time.Hour {
		t.Fatalf("MaxTTL = %v, want 2h", got)
	}
}

func TestNoneBackendSkipsBackendSections(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = BackendNone
	cfg.Cache.Memory.Capacity = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
