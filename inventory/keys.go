package inventory

import "github.com/goliatone/go-inventory-cache/cache"

// View names of the product keyspace.
const (
	ViewID       = "id"
	ViewAll      = "all"
	ViewActive   = "active"
	ViewCategory = "category"
	ViewStock    = "stock"
	ViewStats    = "stats"
)

var productKeys = cache.NewKeyspace("Product")

// Keys derives the cache keys of product views.
type Keys struct{}

// ByID is the key of the single product view.
func (Keys) ByID(id int64) string { return productKeys.Key(ViewID, id) }

// All is the key of the full collection of non-deleted products.
func (Keys) All() string { return productKeys.Key(ViewAll) }

// Active is the key of the active products collection.
func (Keys) Active() string { return productKeys.Key(ViewActive) }

// ByCategory is the key of the active products in category. The category is
// folded, so every spelling of one category shares the key.
func (Keys) ByCategory(category string) string { return productKeys.Key(ViewCategory, category) }

// Stock is the key of the stock projection of one product.
func (Keys) Stock(id int64) string { return productKeys.Key(ViewStock, id) }

// Stats is the key of the catalog summary.
func (Keys) Stats() string { return productKeys.Key(ViewStats) }

// entityKeys lists the views that hold a single product.
func (k Keys) entityKeys(id int64) []string {
	return []string{k.ByID(id), k.Stock(id)}
}

// collectionKeys lists the views that may contain a product in any of the
// given categories.
func (k Keys) collectionKeys(categories ...string) []string {
	keys := []string{k.All(), k.Active(), k.Stats()}
	for _, c := range categories {
		if c != "" {
			keys = append(keys, k.ByCategory(c))
		}
	}
	return keys
}
