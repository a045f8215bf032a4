package cacheinfra

import (
	"context"

	"github.com/goliatone/go-inventory-cache/cache"
)

// NoopBackend disables caching: every read misses and writes are discarded.
type NoopBackend struct{}

var _ cache.Backend = NoopBackend{}

func (NoopBackend) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (NoopBackend) Set(context.Context, string, string, cache.TTLPolicy) error { return nil }
func (NoopBackend) Remove(context.Context, string) error { return nil }
func (NoopBackend) Exists(context.Context, string) (bool, error) { return false, nil }
