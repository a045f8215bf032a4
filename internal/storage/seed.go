package storage

import (
	"context"
	"time"

	"github.com/goliatone/go-inventory-cache/inventory"
)

// SampleProducts is the catalog loaded into an empty database.
func SampleProducts() []inventory.CreateProductInput {
	return []inventory.CreateProductInput{
		{Name: "Laptop", Description: "High performance laptop with 16GB RAM", Price: 999.99, StockQuantity: 10, Category: "Electronics", SKU: "ELEC-LAPTOP-001"},
		{Name: "Smartphone", Description: "Latest smartphone with 128GB storage", Price: 699.99, StockQuantity: 25, Category: "Electronics", SKU: "ELEC-PHONE-001"},
		{Name: "Headphones", Description: "Wireless noise-cancelling headphones", Price: 199.99, StockQuantity: 50, Category: "Audio", SKU: "AUD-HEAD-001"},
		{Name: "Keyboard", Description: "Mechanical gaming keyboard", Price: 89.99, StockQuantity: 30, Category: "Accessories", SKU: "ACC-KEYB-001"},
		{Name: "Monitor", Description: "27-inch 4K monitor", Price: 349.99, StockQuantity: 15, Category: "Electronics", SKU: "ELEC-MON-001"},
		{Name: "Mouse", Description: "Wireless gaming mouse", Price: 59.99, StockQuantity: 40, Category: "Accessories", SKU: "ACC-MOUSE-001"},
		{Name: "Tablet", Description: "10-inch tablet with stylus", Price: 449.99, StockQuantity: 20, Category: "Electronics", SKU: "ELEC-TAB-001"},
		{Name: "Smart Watch", Description: "Fitness tracker with heart rate monitor", Price: 199.99, StockQuantity: 35, Category: "Wearables", SKU: "WEAR-WATCH-001"},
		{Name: "Speaker", Description: "Bluetooth portable speaker", Price: 129.99, StockQuantity: 45, Category: "Audio", SKU: "AUD-SPK-001"},
		{Name: "Webcam", Description: "HD webcam with microphone", Price: 79.99, StockQuantity: 60, Category: "Accessories", SKU: "ACC-CAM-001"},
	}
}

// Seed inserts the sample catalog when the products table holds no rows at
// all, deleted ones included. It returns the number of inserted products.
func Seed(ctx context.Context, repo inventory.Repository, now time.Time) (int, error) {
	count, err := repo.CountWhere(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	now = now.UTC().Truncate(time.Microsecond)
	inserted := 0
	for _, in := range SampleProducts() {
		p := inventory.Product{
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
		if err := repo.Insert(ctx, &p); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
