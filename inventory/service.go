package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultStatsTTL bounds how long the stats summary may be served from cache.
const DefaultStatsTTL = 5 * time.Minute

// ErrNilRepository is returned by NewService when no repository is provided.
var ErrNilRepository = errors.New("inventory: repository is required")

// ErrNilCache is returned by NewService when no cache service is provided.
var ErrNilCache = errors.New("inventory: cache service is required")

// Service serves product reads through the cache and keeps the cache
// consistent with every write it performs.
type Service struct {
	repo   Repository
	cache  *cache.Service
	keys   Keys
	clock  clockwork.Clock
	logger *zap.Logger

	ttl      cache.TTLPolicy
	statsTTL time.Duration

	products *cache.EntityStore[Product]
	lists    *cache.Store[[]Product]
	stock    *cache.Store[Stock]
	stats    *cache.Store[ProductStats]
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and stats generation.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger used for write events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTTL sets the expiry policy for entity and collection views.
func WithTTL(ttl cache.TTLPolicy) Option {
	return func(s *Service) {
		if !ttl.IsZero() {
			s.ttl = ttl
		}
	}
}

// WithStatsTTL sets the absolute expiry of the stats view.
func WithStatsTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsTTL = d
		}
	}
}

// NewService wires repo and the cache service into a product Service.
func NewService(repo Repository, cacheSvc *cache.Service, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}
	if cacheSvc == nil {
		return nil, ErrNilCache
	}

	s := &Service{
		repo:     repo,
		cache:    cacheSvc,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		ttl:      cache.DefaultConfig().TTL,
		statsTTL: DefaultStatsTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.products = cache.NewEntityStore[Product](cacheSvc, productKeys, ViewID, s.ttl)
	s.lists = cache.NewStore[[]Product](cacheSvc, s.ttl)
	s.stock = cache.NewStore[Stock](cacheSvc, s.ttl)
	s.stats = cache.NewStore[ProductStats](cacheSvc, cache.AbsoluteTTL(s.statsTTL))
	return s, nil
}

// Keys returns the key derivation used by the service.
func (s *Service) Keys() Keys { return s.keys }

// now returns the current time at the precision the store keeps.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// GetByID returns the product with id. Missing and deleted products yield
// NotFound, which is never cached.
func (s *Service) GetByID(ctx context.Context, id int64) (Product, bool, error) {
	return s.products.GetOrLoad(ctx, id, func(ctx context.Context) (Product, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// GetAll returns every non-deleted product ordered by id.
func (s *Service) GetAll(ctx context.Context) ([]Product, bool, error) {
	return s.lists.GetOrLoad(ctx, s.keys.All(), func(ctx context.Context) ([]Product, error) {
		return nonNil(s.repo.FindAll(ctx))
	})
}

// GetActive returns the active, non-deleted products.
func (s *Service) GetActive(ctx context.Context) ([]Product, bool, error) {
	return s.lists.GetOrLoad(ctx, s.keys.Active(), func(ctx context.Context) ([]Product, error) {
		return nonNil(s.repo.FindWhere(ctx, Active(), NotDeleted()))
	})
}

// GetByCategory returns the active, non-deleted products whose category
// matches case-insensitively.
func (s *Service) GetByCategory(ctx context.Context, category string) ([]Product, bool, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, false, InvalidField("category", "cannot be blank")
	}
	return s.lists.GetOrLoad(ctx, s.keys.ByCategory(category), func(ctx context.Context) ([]Product, error) {
		return nonNil(s.repo.FindWhere(ctx, InCategory(category), Active(), NotDeleted()))
	})
}

// GetStock returns the stock projection of the product with id.
func (s *Service) GetStock(ctx context.Context, id int64) (Stock, bool, error) {
	return s.stock.GetOrLoad(ctx, s.keys.Stock(id), func(ctx context.Context) (Stock, error) {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return Stock{}, err
		}
		return Stock{ProductID: p.ID, Quantity: p.StockQuantity}, nil
	})
}

// GetStats returns the catalog summary. It expires on a fixed schedule in
// addition to being invalidated by writes.
func (s *Service) GetStats(ctx context.Context) (ProductStats, bool, error) {
	return s.stats.GetOrLoad(ctx, s.keys.Stats(), func(ctx context.Context) (ProductStats, error) {
		products, err := s.repo.FindAll(ctx)
		if err != nil {
			return ProductStats{}, err
		}
		return ComputeStats(products, s.now()), nil
	})
}

// Count returns the number of non-deleted products straight from the store.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountWhere(ctx, NotDeleted())
}

// Create validates in, rejects a SKU already used by any row, deleted rows
// included, and inserts the product as active.
func (s *Service) Create(ctx context.Context, in CreateProductInput) (Product, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return Product{}, Invalid(err, "invalid product")
	}

	exists, err := s.repo.Exists(ctx, SKUEquals(in.SKU))
	if err != nil {
		return Product{}, err
	}
	if exists {
		return Product{}, Conflict(in.SKU)
	}

	now := s.now()
	p := Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		Category:      in.Category,
		SKU:           in.SKU,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, &p); err != nil {
		return Product{}, err
	}

	s.cache.InvalidateMany(ctx, s.keys.collectionKeys(p.Category)...)

	s.logger.Info("created product", zap.Int64("id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

// Update applies patch to the product with id. Only present fields are
// written. An empty patch returns the current product untouched.
func (s *Service) Update(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	patch.normalize()
	if err := patch.Validate(); err != nil {
		return Product{}, Invalid(err, "invalid product patch")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if patch.Empty() {
		return current, nil
	}

	oldCategory := current.Category
	columns := patch.Apply(&current)
	current.UpdatedAt = s.now()
	columns = append(columns, "updated_at")

	if err := s.repo.UpdateFields(ctx, &current, columns...); err != nil {
		return Product{}, err
	}

	keys := append(s.keys.entityKeys(id), s.keys.collectionKeys(oldCategory, current.Category)...)
	s.cache.InvalidateMany(ctx, keys...)

	s.logger.Info("updated product", zap.Int64("id", id), zap.Strings("columns", columns))
	return current, nil
}

// Delete soft deletes the product with id. Deleting a missing or already
// deleted product yields NotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}

	keys := append(s.keys.entityKeys(id), s.keys.collectionKeys(current.Category)...)
	s.cache.InvalidateMany(ctx, keys...)

	s.logger.Info("soft deleted product", zap.Int64("id", id))
	return nil
}

// AdjustStock adds delta to the product's stock. The quantity may go
// negative to record backorders.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	return s.adjustStock(ctx, id, delta, false)
}

// DecrementStock removes qty units from stock, stopping at zero.
func (s *Service) DecrementStock(ctx context.Context, id int64, qty int) (Product, error) {
	if qty <= 0 {
		return Product{}, InvalidField("quantity", "must be greater than 0")
	}
	return s.adjustStock(ctx, id, -qty, true)
}

func (s *Service) adjustStock(ctx context.Context, id int64, delta int, floorAtZero bool) (Product, error) {
	p, err := s.repo.AdjustStock(ctx, id, delta, floorAtZero, s.now())
	if err != nil {
		return Product{}, err
	}

	s.stock.Put(ctx, s.keys.Stock(id), Stock{ProductID: p.ID, Quantity: p.StockQuantity})

	keys := append([]string{s.products.KeyOf(p)}, s.keys.collectionKeys(p.Category)...)
	s.cache.InvalidateMany(ctx, keys...)

	s.logger.Info("adjusted product stock",
		zap.Int64("id", id),
		zap.Int("delta", delta),
		zap.Int("quantity", p.StockQuantity),
	)
	return p, nil
}

// ClearCache drops the entity views of id when given, and always the
// unfiltered collection views. Category views are left to expire.
func (s *Service) ClearCache(ctx context.Context, id *int64) {
	var keys []string
	if id != nil {
		keys = append(keys, s.keys.entityKeys(*id)...)
	}
	keys = append(keys, s.keys.All(), s.keys.Active())
	s.cache.InvalidateMany(ctx, keys...)

	if id != nil {
		s.logger.Info("product cache cleared", zap.Int64("id", *id))
	} else {
		s.logger.Info("product cache cleared")
	}
}

func nonNil(products []Product, err error) ([]Product, error) {
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}
