package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a value from the source of truth on a cache miss.
type Loader[T any] func(ctx context.Context) (T, error)

// Service implements cache-aside reads and targeted invalidation over a Backend.
//
// Backend failures never reach the caller: a failed lookup is a miss, a failed
// store or removal is logged and reported through Hooks. Loader errors are
// returned as-is and nothing is cached for them, so "not found" results are
// never remembered.
//
// Every key belongs to exactly one value type. Concurrent misses on the same
// key share a single load, and the loaded value is handed to every waiter, so
// callers must treat returned slices and maps as read-only.
type Service struct {
	backend    Backend
	serializer Serializer
	logger     *zap.Logger
	hooks      Hooks
	group      singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithSerializer sets the payload encoding. JSON is used by default.
func WithSerializer(serializer Serializer) Option {
	return func(s *Service) {
		if serializer != nil {
			s.serializer = serializer
		}
	}
}

// WithLogger sets the logger used to report degraded cache operations.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks registers an observer for hits, misses and backend errors.
func WithHooks(hooks Hooks) Option {
	return func(s *Service) {
		if hooks != nil {
			s.hooks = hooks
		}
	}
}

// ErrNilBackend is returned by NewService when no backend is provided.
var ErrNilBackend = errors.New("cache: backend is required")

// NewService builds a Service on top of backend.
func NewService(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	s := &Service{
		backend:    backend,
		serializer: JSONSerializer{},
		logger:     zap.NewNop(),
		hooks:      NopHooks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// GetOrLoad returns the cached value for key, or calls loader, caches its
// result under ttl and returns it. hit reports whether the value came from
// the cache.
//
// The caller's context bounds how long it waits. The load itself runs detached
// from cancellation so a coalesced load is not aborted by one impatient caller.
func GetOrLoad[T any](ctx context.Context, s *Service, key string, loader Loader[T], ttl TTLPolicy) (value T, hit bool, err error) {
	var zero T
	if loader == nil {
		return zero, false, errors.New("cache: loader is required")
	}

	if !BypassRequested(ctx) {
		if v, ok := lookup[T](ctx, s, key); ok {
			s.hooks.Hit(key)
			return v, true, nil
		}
	}
	s.hooks.Miss(key)

	ch := s.group.DoChan(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		store(loadCtx, s, key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		v, _ := res.Val.(T)
		return v, false, nil
	}
}

// Put writes value under key, replacing any previous entry. It is best-effort:
// failures are logged and swallowed.
func Put[T any](ctx context.Context, s *Service, key string, value T, ttl TTLPolicy) {
	s.group.Forget(key)
	store(context.WithoutCancel(ctx), s, key, value, ttl)
}

// Invalidate removes key. Removing an absent key is not an error, and backend
// failures are logged rather than returned since entries also expire on their own.
func (s *Service) Invalidate(ctx context.Context, key string) {
	if key == "" {
		return
	}
	s.group.Forget(key)

	// A committed write must not leave its invalidation half done because the
	// request went away.
	if err := s.backend.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.degraded(OpRemove, key, err)
		return
	}
	s.hooks.Invalidated(key)
}

// InvalidateMany removes every key independently. A failure on one key does not
// stop the others. Duplicate and empty keys are skipped.
func (s *Service) InvalidateMany(ctx context.Context, keys ...string) {
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.Invalidate(ctx, key)
	}
}

// Exists reports whether key is currently cached. Backend errors report false.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.degraded(OpExists, key, err)
		return false
	}
	return ok
}

func lookup[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.degraded(OpGet, key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := s.serializer.Unmarshal([]byte(raw), &v); err != nil {
		s.degraded(OpDecode, key, err)
		// Drop the unreadable payload so the next load replaces it.
		s.drop(ctx, key)
		return zero, false
	}
	if !cacheable(v) {
		s.drop(ctx, key)
		return zero, false
	}
	return v, true
}

func store[T any](ctx context.Context, s *Service, key string, value T, ttl TTLPolicy) {
	if !cacheable(value) {
		return
	}
	data, err := s.serializer.Marshal(value)
	if err != nil {
		s.degraded(OpEncode, key, err)
		return
	}
	if err := s.backend.Set(ctx, key, string(data), ttl); err != nil {
		s.degraded(OpSet, key, err)
	}
}

func (s *Service) drop(ctx context.Context, key string) {
	if err := s.backend.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.degraded(OpRemove, key, err)
	}
}

// cacheable reports whether v may be stored. Soft deleted entities never are.
func cacheable(v any) bool {
	if e, ok := v.(Entity); ok {
		return !e.SoftDeleted()
	}
	return true
}

func (s *Service) degraded(op, key string, err error) {
	s.logger.Warn("cache operation failed, continuing without cache",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	s.hooks.BackendError(op, key, err)
}
