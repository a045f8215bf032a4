package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-inventory-cache/internal/metrics"
	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency. Critical checks turn /health into a 503
// when they fail; the others only report degraded.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Router exposes the product service over HTTP.
type Router struct {
	svc     *inventory.Service
	logger  *zap.Logger
	metrics *metrics.Collector
	clock   clockwork.Clock
	checks  []HealthCheck
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the access and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(rt *Router) {
		rt.metrics = c
	}
}

// WithClock sets the clock used for response timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(rt *Router) {
		if clock != nil {
			rt.clock = clock
		}
	}
}

// WithHealthCheck adds a dependency probe to /health.
func WithHealthCheck(check HealthCheck) Option {
	return func(rt *Router) {
		if check.Check != nil {
			rt.checks = append(rt.checks, check)
		}
	}
}

// NewRouter creates a new router instance
func NewRouter(svc *inventory.Service, opts ...Option) *Router {
	rt := &Router{
		svc:    svc,
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}
	return rt
}

// Handler configures all routes and middleware
func (rt *Router) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(Logger(rt.logger))
	router.Use(Observe(rt.metrics))
	router.Use(chimiddleware.Recoverer)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, r, errRouteNotFound)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, r, errMethodNotAllowed)
	})

	router.Get("/health", rt.health)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/test", func(r chi.Router) {
		r.Get("/ping", rt.ping)
		r.Get("/db", rt.databaseCheck)
	})

	router.Route("/api/products", func(r chi.Router) {
		r.Get("/", rt.listProducts)
		r.Post("/", rt.createProduct)
		r.Get("/active", rt.listActiveProducts)
		r.Get("/stats", rt.productStats)
		r.Get("/category/{category}", rt.listByCategory)
		r.Post("/clear-cache", rt.clearCache)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.getProduct)
			r.Put("/", rt.updateProduct)
			r.Patch("/", rt.updateProduct)
			r.Delete("/", rt.deleteProduct)
			r.Get("/stock", rt.getStock)
			r.Patch("/stock", rt.adjustStock)
			r.Post("/stock/decrement", rt.decrementStock)
		})
	})

	return router
}
