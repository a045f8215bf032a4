package inventory

import (
	"context"
	"time"
)

// Repository is the backing store for products. It is the source of truth:
// the service never reads a value that did not come from here or from a
// cache entry populated from here.
//
// Implementations return NotFound for missing rows, Conflict for a SKU
// collision and wrap everything else with StoreUnavailable.
type Repository interface {
	// FindByID returns the non-deleted product with id.
	FindByID(ctx context.Context, id int64) (Product, error)
	// FindAll returns every non-deleted product ordered by id.
	FindAll(ctx context.Context) ([]Product, error)
	// FindWhere returns the products matching every predicate, ordered by id.
	// Deleted rows are only excluded when NotDeleted is among preds.
	FindWhere(ctx context.Context, preds ...Predicate) ([]Product, error)
	// Insert stores p and assigns its ID.
	Insert(ctx context.Context, p *Product) error
	// UpdateFields persists the named columns of p.
	UpdateFields(ctx context.Context, p *Product, columns ...string) error
	// SoftDelete flags the non-deleted product id as deleted.
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Exists(ctx context.Context, preds ...Predicate) (bool, error)
	CountWhere(ctx context.Context, preds ...Predicate) (int, error)
	// AdjustStock adds delta to the stock of the non-deleted product id in a
	// single atomic step and returns the updated row. With floorAtZero the
	// result never drops below zero.
	AdjustStock(ctx context.Context, id int64, delta int, floorAtZero bool, at time.Time) (Product, error)
}
