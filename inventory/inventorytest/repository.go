// Package inventorytest provides an in-memory inventory.Repository for tests.
package inventorytest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/puzpuzpuz/xsync/v3"
)

// Repository keeps products in a concurrent map. Stock adjustments are atomic
// per product, matching the single-statement update of the SQL repository.
type Repository struct {
	rows   *xsync.MapOf[int64, inventory.Product]
	nextID atomic.Int64

	// insertMu serializes inserts so SKU uniqueness holds.
	insertMu sync.Mutex

	calls *xsync.MapOf[string, int]
	err   atomic.Pointer[error]
}

var _ inventory.Repository = (*Repository)(nil)

// NewRepository returns an empty repository holding seed.
func NewRepository(seed ...inventory.Product) *Repository {
	r := &Repository{
		rows:  xsync.NewMapOf[int64, inventory.Product](),
		calls: xsync.NewMapOf[string, int](),
	}
	for _, p := range seed {
		if err := r.Insert(context.Background(), &p); err != nil {
			panic(err)
		}
	}
	return r
}

// Calls returns how many times op was invoked.
func (r *Repository) Calls(op string) int {
	n, _ := r.calls.Load(op)
	return n
}

// Fail makes every following call return err wrapped as a store failure.
// A nil err restores normal behaviour.
func (r *Repository) Fail(err error) {
	if err == nil {
		r.err.Store(nil)
		return
	}
	r.err.Store(&err)
}

func (r *Repository) enter(op string) error {
	r.calls.Compute(op, func(n int, _ bool) (int, bool) { return n + 1, false })
	if errp := r.err.Load(); errp != nil {
		return inventory.StoreUnavailable(*errp, op)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (inventory.Product, error) {
	if err := r.enter("FindByID"); err != nil {
		return inventory.Product{}, err
	}
	p, ok := r.rows.Load(id)
	if !ok || p.IsDeleted {
		return inventory.Product{}, inventory.NotFound(id)
	}
	return p, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]inventory.Product, error) {
	if err := r.enter("FindAll"); err != nil {
		return nil, err
	}
	return r.collect(inventory.NotDeleted()), nil
}

func (r *Repository) FindWhere(ctx context.Context, preds ...inventory.Predicate) ([]inventory.Product, error) {
	if err := r.enter("FindWhere"); err != nil {
		return nil, err
	}
	return r.collect(preds...), nil
}

func (r *Repository) Insert(ctx context.Context, p *inventory.Product) error {
	if err := r.enter("Insert"); err != nil {
		return err
	}

	r.insertMu.Lock()
	defer r.insertMu.Unlock()

	if len(r.collect(inventory.SKUEquals(p.SKU))) > 0 {
		return inventory.Conflict(p.SKU)
	}
	p.ID = r.nextID.Add(1)
	r.rows.Store(p.ID, *p)
	return nil
}

func (r *Repository) UpdateFields(ctx context.Context, p *inventory.Product, columns ...string) error {
	if err := r.enter("UpdateFields"); err != nil {
		return err
	}

	found := false
	r.rows.Compute(p.ID, func(old inventory.Product, loaded bool) (inventory.Product, bool) {
		if !loaded {
			return old, true
		}
		if old.IsDeleted {
			return old, false
		}
		found = true
		return mergeColumns(old, *p, columns), false
	})
	if !found {
		return inventory.NotFound(p.ID)
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	if err := r.enter("SoftDelete"); err != nil {
		return err
	}

	found := false
	r.rows.Compute(id, func(old inventory.Product, loaded bool) (inventory.Product, bool) {
		if !loaded {
			return old, true
		}
		if old.IsDeleted {
			return old, false
		}
		found = true
		old.IsDeleted = true
		old.UpdatedAt = at
		return old, false
	})
	if !found {
		return inventory.NotFound(id)
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, preds ...inventory.Predicate) (bool, error) {
	if err := r.enter("Exists"); err != nil {
		return false, err
	}
	exists := false
	r.rows.Range(func(_ int64, p inventory.Product) bool {
		if inventory.MatchAll(&p, preds...) {
			exists = true
			return false
		}
		return true
	})
	return exists, nil
}

func (r *Repository) CountWhere(ctx context.Context, preds ...inventory.Predicate) (int, error) {
	if err := r.enter("CountWhere"); err != nil {
		return 0, err
	}
	return len(r.collect(preds...)), nil
}

func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int, floorAtZero bool, at time.Time) (inventory.Product, error) {
	if err := r.enter("AdjustStock"); err != nil {
		return inventory.Product{}, err
	}

	found := false
	updated, _ := r.rows.Compute(id, func(old inventory.Product, loaded bool) (inventory.Product, bool) {
		if !loaded {
			return old, true
		}
		if old.IsDeleted {
			return old, false
		}
		found = true
		old.StockQuantity += delta
		if floorAtZero && old.StockQuantity < 0 {
			old.StockQuantity = 0
		}
		old.UpdatedAt = at
		return old, false
	})
	if !found {
		return inventory.Product{}, inventory.NotFound(id)
	}
	return updated, nil
}

func (r *Repository) collect(preds ...inventory.Predicate) []inventory.Product {
	out := []inventory.Product{}
	r.rows.Range(func(_ int64, p inventory.Product) bool {
		if inventory.MatchAll(&p, preds...) {
			out = append(out, p)
		}
		return true
	})
	slices.SortFunc(out, func(a, b inventory.Product) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func mergeColumns(dst, src inventory.Product, columns []string) inventory.Product {
	for _, col := range columns {
		switch col {
		case "name":
			dst.Name = src.Name
		case "description":
			dst.Description = src.Description
		case "price":
			dst.Price = src.Price
		case "stock_quantity":
			dst.StockQuantity = src.StockQuantity
		case "category":
			dst.Category = src.Category
		case "is_active":
			dst.IsActive = src.IsActive
		case "is_deleted":
			dst.IsDeleted = src.IsDeleted
		case "updated_at":
			dst.UpdatedAt = src.UpdatedAt
		}
	}
	return dst
}
