package cache

import (
	"time"
)

// Default expiry applied to entity views: entries slide for five minutes on
// each hit and never outlive one hour.
const (
	DefaultSlidingTTL  = 5 * time.Minute
	DefaultAbsoluteTTL = time.Hour
)

// Config holds the backend independent cache settings.
type Config struct {
	// Serializer names the payload encoding: "json", "msgpack" or "cbor".
	Serializer string

	// TTL is the default policy for entries written through a Store.
	TTL TTLPolicy
}

// DefaultConfig returns JSON payloads with the default sliding and absolute expiry.
func DefaultConfig() Config {
	return Config{
		Serializer: SerializerJSON,
		TTL: TTLPolicy{
			Sliding:  DefaultSlidingTTL,
			Absolute: DefaultAbsoluteTTL,
		},
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if _, err := NewSerializer(c.Serializer); err != nil {
		return &ConfigError{Field: "Serializer", Message: "must be one of json, msgpack, cbor"}
	}
	if c.TTL.Sliding < 0 {
		return &ConfigError{Field: "TTL.Sliding", Message: "must be non-negative"}
	}
	if c.TTL.Absolute < 0 {
		return &ConfigError{Field: "TTL.Absolute", Message: "must be non-negative"}
	}
	if c.TTL.IsZero() {
		return &ConfigError{Field: "TTL", Message: "at least one of sliding or absolute must be set"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
