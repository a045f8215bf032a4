package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/internal/cacheinfra"
	"github.com/goliatone/go-inventory-cache/internal/config"
	"github.com/goliatone/go-inventory-cache/internal/httpapi"
	"github.com/goliatone/go-inventory-cache/internal/metrics"
	"github.com/goliatone/go-inventory-cache/internal/storage"
	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "inventory"

// Container wires the inventory service from a configuration. It owns the
// database pool and the cache backend and releases both on Close.
type Container struct {
	config  config.Config
	logger  *zap.Logger
	clock   clockwork.Clock
	metrics *metrics.Collector

	backend     cache.Backend
	backendName string
	cache       *cache.Service

	db      *bun.DB
	repo    *storage.ProductRepository
	service *inventory.Service
	checks  []httpapi.HealthCheck
	handler http.Handler

	closers []func() error
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock shared by the service and the cache backend.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContainer validates cfg and builds every component. The database schema
// is created when missing and the sample catalog is loaded into an empty
// database when cfg.Database.Seed is set.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.build(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			c.logger.Warn("failed to release partially built container", zap.Error(closeErr))
		}
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	c.metrics = metrics.NewCollector(MetricsNamespace)

	if err := c.buildCache(ctx); err != nil {
		return err
	}
	if err := c.buildStorage(ctx); err != nil {
		return err
	}

	svc, err := inventory.NewService(c.repo, c.cache,
		inventory.WithClock(c.clock),
		inventory.WithLogger(c.logger.Named("inventory")),
		inventory.WithTTL(c.config.Cache.CacheOptions().TTL),
		inventory.WithStatsTTL(c.config.Cache.StatsTTL),
	)
	if err != nil {
		return err
	}
	c.service = svc

	c.handler = httpapi.NewRouter(svc, c.routerOptions()...).Handler()
	return nil
}

func (c *Container) buildCache(ctx context.Context) error {
	backend, name, err := c.newBackend(ctx)
	if err != nil {
		return err
	}
	c.backend = backend
	c.backendName = name

	serializer, err := cache.NewSerializer(c.config.Cache.Serializer)
	if err != nil {
		return err
	}

	svc, err := cache.NewService(backend,
		cache.WithSerializer(serializer),
		cache.WithLogger(c.logger.Named("cache")),
		cache.WithHooks(c.metrics),
	)
	if err != nil {
		return err
	}
	c.cache = svc

	c.logger.Info("cache backend selected",
		zap.String("backend", name),
		zap.String("serializer", serializer.Name()),
	)
	return nil
}

// newBackend picks the backend once, at startup. An unreachable Redis is
// logged and kept: reads fall through to the store until it comes back.
func (c *Container) newBackend(ctx context.Context) (cache.Backend, string, error) {
	infraOpts := []cacheinfra.Option{
		cacheinfra.WithClock(c.clock),
		cacheinfra.WithLogger(c.logger.Named("cache")),
	}

	switch name := c.config.Cache.ResolvedBackend(); name {
	case config.BackendRedis:
		redis, err := cacheinfra.NewRedisBackend(c.config.Cache.RedisOptions(), infraOpts...)
		if err != nil {
			return nil, "", err
		}
		c.closers = append(c.closers, redis.Close)

		if err := redis.Ping(ctx); err != nil {
			c.logger.Warn("redis unreachable at startup, serving from the database until it recovers",
				zap.String("addr", c.config.Cache.Redis.Addr),
				zap.Error(err),
			)
		}

		backend, err := cacheinfra.NewBreakerBackend("redis", redis, c.config.Cache.BreakerOptions(), infraOpts...)
		if err != nil {
			return nil, "", err
		}
		c.addHealthCheck(httpapi.HealthCheck{Name: "cache", Check: redis.Ping})
		return backend, name, nil

	case config.BackendMemory:
		backend, err := cacheinfra.NewMemoryBackend(c.config.Cache.MemoryOptions(), infraOpts...)
		if err != nil {
			return nil, "", err
		}
		return backend, name, nil

	case config.BackendNone:
		return cacheinfra.NoopBackend{}, name, nil

	default:
		return nil, "", fmt.Errorf("unsupported cache backend %q", name)
	}
}

func (c *Container) buildStorage(ctx context.Context) error {
	db, err := storage.Open(c.config.Database.Driver, c.config.Database.DSN)
	if err != nil {
		return err
	}
	c.db = db
	c.closers = append(c.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to %s database: %w", c.config.Database.Driver, err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		return err
	}
	c.repo = storage.NewProductRepository(db)

	if c.config.Database.Seed {
		n, err := storage.Seed(ctx, c.repo, c.clock.Now())
		if err != nil {
			return fmt.Errorf("seed sample products: %w", err)
		}
		if n > 0 {
			c.logger.Info("seeded sample products", zap.Int("count", n))
		}
	}

	c.addHealthCheck(httpapi.HealthCheck{Name: "database", Critical: true, Check: db.PingContext})
	return nil
}

func (c *Container) addHealthCheck(check httpapi.HealthCheck) {
	c.checks = append(c.checks, check)
}

func (c *Container) routerOptions() []httpapi.Option {
	opts := []httpapi.Option{
		httpapi.WithLogger(c.logger.Named("http")),
		httpapi.WithMetrics(c.metrics),
		httpapi.WithClock(c.clock),
	}
	for _, check := range c.checks {
		opts = append(opts, httpapi.WithHealthCheck(check))
	}
	return opts
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the shared logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Metrics returns the Prometheus collector.
func (c *Container) Metrics() *metrics.Collector { return c.metrics }

// BackendName reports the selected cache backend: memory, redis or none.
func (c *Container) BackendName() string { return c.backendName }

// Backend returns the selected cache backend, breaker included.
func (c *Container) Backend() cache.Backend { return c.backend }

// CacheService returns the cache-aside service.
func (c *Container) CacheService() *cache.Service { return c.cache }

// DB returns the database handle.
func (c *Container) DB() *bun.DB { return c.db }

// Repository returns the SQL product repository.
func (c *Container) Repository() *storage.ProductRepository { return c.repo }

// Service returns the product service.
func (c *Container) Service() *inventory.Service { return c.service }

// Handler returns the HTTP handler serving the API.
func (c *Container) Handler() http.Handler { return c.handler }

// Close releases the cache backend and the database, in reverse order of
// acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
