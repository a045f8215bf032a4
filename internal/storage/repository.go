package storage

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/uptrace/bun"
)

// ProductRepository is the bun backed inventory.Repository.
type ProductRepository struct {
	db bun.IDB
}

var _ inventory.Repository = (*ProductRepository)(nil)

// NewProductRepository returns a repository over db.
func NewProductRepository(db bun.IDB) *ProductRepository {
	return &ProductRepository{db: db}
}

// filterProducts starts a products query narrowed by preds.
func (r *ProductRepository) filterProducts(dest any, preds ...inventory.Predicate) *bun.SelectQuery {
	q := r.db.NewSelect().Model(dest)
	return inventory.ApplyAll(q, preds...)
}

// selectProducts is filterProducts for queries that load rows. The folded
// category only serves filtering and is not loaded.
func (r *ProductRepository) selectProducts(dest any, preds ...inventory.Predicate) *bun.SelectQuery {
	return r.filterProducts(dest, preds...).ExcludeColumn("category_key")
}

// FindByID returns the non-deleted product with id, or NotFound.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (inventory.Product, error) {
	var p inventory.Product
	err := r.selectProducts(&p, inventory.NotDeleted()).
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Product{}, inventory.NotFound(id)
	}
	if err != nil {
		return inventory.Product{}, inventory.StoreUnavailable(err, "find")
	}
	return p, nil
}

// FindAll returns every non-deleted product ordered by id.
func (r *ProductRepository) FindAll(ctx context.Context) ([]inventory.Product, error) {
	return r.FindWhere(ctx, inventory.NotDeleted())
}

// FindWhere returns the products matching every predicate, ordered by id.
func (r *ProductRepository) FindWhere(ctx context.Context, preds ...inventory.Predicate) ([]inventory.Product, error) {
	products := []inventory.Product{}
	if err := r.selectProducts(&products, preds...).
		Order("p.id ASC").
		Scan(ctx); err != nil {
		return nil, inventory.StoreUnavailable(err, "find")
	}
	return products, nil
}

// Insert stores p and assigns its id. A taken SKU yields Conflict.
func (r *ProductRepository) Insert(ctx context.Context, p *inventory.Product) error {
	p.CategoryKey = inventory.CategoryKey(p.Category)
	if _, err := r.db.NewInsert().Model(p).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return inventory.Conflict(p.SKU)
		}
		return inventory.StoreUnavailable(err, "insert")
	}
	return nil
}

// UpdateFields writes only the named columns of p. Deleted or missing rows
// yield NotFound.
func (r *ProductRepository) UpdateFields(ctx context.Context, p *inventory.Product, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	if slices.Contains(columns, "category") && !slices.Contains(columns, "category_key") {
		p.CategoryKey = inventory.CategoryKey(p.Category)
		columns = append(slices.Clip(columns), "category_key")
	}
	res, err := r.db.NewUpdate().
		Model(p).
		Column(columns...).
		WherePK().
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return inventory.StoreUnavailable(err, "update")
	}
	return requireRow(res, p.ID)
}

// SoftDelete flags the product with id as deleted. The row keeps its SKU.
func (r *ProductRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*inventory.Product)(nil)).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return inventory.StoreUnavailable(err, "delete")
	}
	return requireRow(res, id)
}

// Exists reports whether any row, deleted rows included, matches preds.
func (r *ProductRepository) Exists(ctx context.Context, preds ...inventory.Predicate) (bool, error) {
	ok, err := r.filterProducts((*inventory.Product)(nil), preds...).Exists(ctx)
	if err != nil {
		return false, inventory.StoreUnavailable(err, "exists")
	}
	return ok, nil
}

// CountWhere counts the rows matching preds.
func (r *ProductRepository) CountWhere(ctx context.Context, preds ...inventory.Predicate) (int, error) {
	n, err := r.filterProducts((*inventory.Product)(nil), preds...).Count(ctx)
	if err != nil {
		return 0, inventory.StoreUnavailable(err, "count")
	}
	return n, nil
}

// AdjustStock applies delta with a single UPDATE so concurrent adjustments
// never lose an increment, then reads the row back inside the same
// transaction.
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta int, floorAtZero bool, at time.Time) (inventory.Product, error) {
	var p inventory.Product
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().Model((*inventory.Product)(nil))
		if floorAtZero {
			q = q.Set("stock_quantity = CASE WHEN stock_quantity + ? < 0 THEN 0 ELSE stock_quantity + ? END", delta, delta)
		} else {
			q = q.Set("stock_quantity = stock_quantity + ?", delta)
		}
		res, err := q.
			Set("updated_at = ?", at).
			Where("id = ?", id).
			Where("is_deleted = ?", false).
			Exec(ctx)
		if err != nil {
			return inventory.StoreUnavailable(err, "adjust stock")
		}
		if err := requireRow(res, id); err != nil {
			return err
		}

		if err := tx.NewSelect().Model(&p).ExcludeColumn("category_key").Where("p.id = ?", id).Scan(ctx); err != nil {
			return inventory.StoreUnavailable(err, "adjust stock")
		}
		return nil
	})
	if err != nil {
		return inventory.Product{}, inventory.StoreUnavailable(err, "adjust stock")
	}
	return p, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return inventory.StoreUnavailable(err, "rows affected")
	}
	if n == 0 {
		return inventory.NotFound(id)
	}
	return nil
}
