package cache

import "context"

// Store is a typed handle over a Service bound to one value type and a default
// TTL policy. Entity services keep one Store per view shape.
type Store[T any] struct {
	svc *Service
	ttl TTLPolicy
}

// NewStore returns a Store for values of type T.
func NewStore[T any](svc *Service, ttl TTLPolicy) *Store[T] {
	return &Store[T]{svc: svc, ttl: ttl}
}

// GetOrLoad is GetOrLoad with the store's TTL policy.
func (s *Store[T]) GetOrLoad(ctx context.Context, key string, loader Loader[T]) (T, bool, error) {
	return GetOrLoad(ctx, s.svc, key, loader, s.ttl)
}

// Put replaces the entry for key with value.
func (s *Store[T]) Put(ctx context.Context, key string, value T) {
	Put(ctx, s.svc, key, value, s.ttl)
}

// EntityStore is a Store for single records addressed by id within one view
// of a keyspace.
type EntityStore[T Entity] struct {
	store *Store[T]
	keys  Keyspace
	view  string
}

// NewEntityStore returns an EntityStore for the view of keys.
func NewEntityStore[T Entity](svc *Service, keys Keyspace, view string, ttl TTLPolicy) *EntityStore[T] {
	return &EntityStore[T]{store: NewStore[T](svc, ttl), keys: keys, view: view}
}

// Key returns the cache key of the record with id.
func (s *EntityStore[T]) Key(id int64) string {
	return s.keys.Key(s.view, id)
}

// KeyOf returns the cache key of e.
func (s *EntityStore[T]) KeyOf(e T) string {
	return s.Key(e.EntityID())
}

// GetOrLoad returns the record with id. A loaded record that reports
// SoftDeleted is returned to the caller but not cached.
func (s *EntityStore[T]) GetOrLoad(ctx context.Context, id int64, loader Loader[T]) (T, bool, error) {
	return s.store.GetOrLoad(ctx, s.Key(id), loader)
}
