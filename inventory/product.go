package inventory

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/uptrace/bun"
)

// Product is a catalog item. ID is assigned by the store and never changes.
// CategoryKey is the folded category the store filters on. It is written by
// the repository and never read back.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p" json:"-"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Description   string    `bun:"description,notnull,default:''" json:"description"`
	Price         float64   `bun:"price,notnull" json:"price"`
	StockQuantity int       `bun:"stock_quantity,notnull,default:0" json:"stockQuantity"`
	Category      string    `bun:"category,notnull" json:"category"`
	CategoryKey   string    `bun:"category_key,notnull,default:''" json:"-"`
	SKU           string    `bun:"sku,notnull,unique" json:"sku"`
	IsActive      bool      `bun:"is_active,notnull" json:"isActive"`
	IsDeleted     bool      `bun:"is_deleted,notnull" json:"isDeleted"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updatedAt"`
}

var _ cache.Entity = Product{}

// EntityID returns the product id.
func (p Product) EntityID() int64 { return p.ID }

// SoftDeleted reports whether the product is flagged as deleted.
func (p Product) SoftDeleted() bool { return p.IsDeleted }

// Stock is the cached projection of a product's quantity.
type Stock struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Field limits shared by create and update validation.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 500
	MaxCategoryLength    = 100
	MaxSKULength         = 50
	MinPrice             = 0.01
)

// CreateProductInput carries the caller supplied fields for a new product.
type CreateProductInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
	Category      string  `json:"category"`
	SKU           string  `json:"sku"`
}

func (in *CreateProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.SKU = strings.TrimSpace(in.SKU)
}

// Validate checks the input against the product field limits.
func (in CreateProductInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&in.Description, validation.RuneLength(0, MaxDescriptionLength)),
		validation.Field(&in.Price, validation.Required, validation.Min(MinPrice)),
		validation.Field(&in.StockQuantity, validation.Min(0)),
		validation.Field(&in.Category, validation.Required, validation.RuneLength(1, MaxCategoryLength)),
		validation.Field(&in.SKU, validation.Required, validation.RuneLength(1, MaxSKULength)),
	)
}

// ProductPatch is a merge-patch: nil fields are left untouched.
type ProductPatch struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
	Category      *string  `json:"category,omitempty"`
	IsActive      *bool    `json:"isActive,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.StockQuantity == nil && p.Category == nil && p.IsActive == nil
}

func (p *ProductPatch) normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.Name)
	trim(p.Description)
	trim(p.Category)
}

// Validate applies the create rules to every present field.
func (p ProductPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&p.Description, validation.RuneLength(0, MaxDescriptionLength)),
		validation.Field(&p.Price, validation.NilOrNotEmpty, validation.Min(MinPrice)),
		validation.Field(&p.StockQuantity, validation.Min(0)),
		validation.Field(&p.Category, validation.NilOrNotEmpty, validation.RuneLength(1, MaxCategoryLength)),
	)
}

// Apply copies the present fields onto dst and returns the changed column names.
func (p ProductPatch) Apply(dst *Product) []string {
	var cols []string
	if p.Name != nil {
		dst.Name = *p.Name
		cols = append(cols, "name")
	}
	if p.Description != nil {
		dst.Description = *p.Description
		cols = append(cols, "description")
	}
	if p.Price != nil {
		dst.Price = *p.Price
		cols = append(cols, "price")
	}
	if p.StockQuantity != nil {
		dst.StockQuantity = *p.StockQuantity
		cols = append(cols, "stock_quantity")
	}
	if p.Category != nil {
		dst.Category = *p.Category
		cols = append(cols, "category")
	}
	if p.IsActive != nil {
		dst.IsActive = *p.IsActive
		cols = append(cols, "is_active")
	}
	return cols
}

// ProductStats summarizes the non-deleted catalog.
type ProductStats struct {
	TotalProducts       int            `json:"totalProducts"`
	ActiveProducts      int            `json:"activeProducts"`
	OutOfStockProducts  int            `json:"outOfStockProducts"`
	TotalInventoryValue float64        `json:"totalInventoryValue"`
	ProductsByCategory  map[string]int `json:"productsByCategory"`
	GeneratedAt         time.Time      `json:"generatedAt"`
}

// ComputeStats folds products into a ProductStats. Deleted rows are skipped.
// Products with no stock on hand, backorders included, count as out of stock
// and contribute nothing to the inventory value.
func ComputeStats(products []Product, now time.Time) ProductStats {
	stats := ProductStats{
		ProductsByCategory: make(map[string]int),
		GeneratedAt:        now,
	}
	for _, p := range products {
		if p.IsDeleted {
			continue
		}
		stats.TotalProducts++
		if p.IsActive {
			stats.ActiveProducts++
		}
		if p.StockQuantity <= 0 {
			stats.OutOfStockProducts++
		} else {
			stats.TotalInventoryValue += p.Price * float64(p.StockQuantity)
		}
		stats.ProductsByCategory[p.Category]++
	}
	return stats
}
