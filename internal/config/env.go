package config

import (
	"fmt"
	"strconv"
	"time"
)

type envBinding struct {
	name  string
	apply func(cfg *Config, value string) error
}

func stringVar(set func(*Config, string)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		set(cfg, v)
		return nil
	}
}

func boolVar(set func(*Config, bool)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		set(cfg, b)
		return nil
	}
}

func intVar(set func(*Config, int)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(cfg, n)
		return nil
	}
}

func durationVar(set func(*Config, time.Duration)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		set(cfg, d)
		return nil
	}
}

var envBindings = []envBinding{
	{"SERVER_ADDR", stringVar(func(c *Config, v string) { c.Server.Addr = v })},

	{"DATABASE_DRIVER", stringVar(func(c *Config, v string) { c.Database.Driver = v })},
	{"DATABASE_DSN", stringVar(func(c *Config, v string) { c.Database.DSN = v })},
	{"DATABASE_SEED", boolVar(func(c *Config, v bool) { c.Database.Seed = v })},

	{"CACHE_BACKEND", stringVar(func(c *Config, v string) { c.Cache.Backend = v })},
	{"CACHE_SERIALIZER", stringVar(func(c *Config, v string) { c.Cache.Serializer = v })},
	{"CACHE_SLIDING_TTL", durationVar(func(c *Config, v time.Duration) { c.Cache.SlidingTTL = v })},
	{"CACHE_ABSOLUTE_TTL", durationVar(func(c *Config, v time.Duration) { c.Cache.AbsoluteTTL = v })},
	{"CACHE_STATS_TTL", durationVar(func(c *Config, v time.Duration) { c.Cache.StatsTTL = v })},

	{"REDIS_ADDR", stringVar(func(c *Config, v string) { c.Cache.Redis.Addr = v })},
	{"REDIS_PASSWORD", stringVar(func(c *Config, v string) { c.Cache.Redis.Password = v })},
	{"REDIS_DB", intVar(func(c *Config, v int) { c.Cache.Redis.DB = v })},
	{"REDIS_KEY_PREFIX", stringVar(func(c *Config, v string) { c.Cache.Redis.KeyPrefix = v })},

	{"LOG_LEVEL", stringVar(func(c *Config, v string) { c.Log.Level = v })},
	{"LOG_DEVELOPMENT", boolVar(func(c *Config, v bool) { c.Log.Development = v })},
}

// applyEnv overlays INVENTORY_* variables onto cfg. Unset variables leave the
// current value alone; a set but empty variable clears string fields.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return fmt.Errorf("%w %s=%q: %v", ErrInvalidEnv, name, value, err)
		}
	}
	return nil
}
