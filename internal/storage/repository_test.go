package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/internal/cacheinfra"
	"github.com/goliatone/go-inventory-cache/internal/storage"
	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/goliatone/go-inventory-cache/inventory/inventorytest"
	"github.com/goliatone/go-inventory-cache/pkg/testsupport"
	"github.com/jonboulle/clockwork"
)

var now = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newRepo(t *testing.T) *storage.ProductRepository {
	t.Helper()
	return storage.NewProductRepository(testsupport.OpenSQLite(t))
}

func insert(t *testing.T, repo *storage.ProductRepository, sku, category string, stock int) inventory.Product {
	t.Helper()
	p := inventory.Product{
		Name:          "Item " + sku,
		Description:   "fixture",
		Price:         10,
		StockQuantity: stock,
		Category:      category,
		SKU:           sku,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Insert(context.Background(), &p); err != nil {
		t.Fatalf("Insert(%s) error = %v", sku, err)
	}
	return p
}

func TestInsertAndFindByID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	p := insert(t, repo, "A-1", "Tools", 3)
	if p.ID == 0 {
		t.Fatal("expected an assigned id")
	}

	got, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.SKU != "A-1" || got.StockQuantity != 3 || !got.IsActive {
		t.Errorf("unexpected row %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}

	if _, err := repo.FindByID(ctx, p.ID+100); !inventory.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInsertDuplicateSKUIsConflict(t *testing.T) {
	repo := newRepo(t)
	insert(t, repo, "A-1", "Tools", 1)

	dup := inventory.Product{Name: "Dup", Price: 1, Category: "Tools", SKU: "A-1", CreatedAt: now}
	err := repo.Insert(context.Background(), &dup)
	if !inventory.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestFindWhereFilters(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	a := insert(t, repo, "A-1", "Tools", 1)
	insert(t, repo, "A-2", "tools", 1)
	insert(t, repo, "B-1", "Garden", 1)

	inactive := false
	a.IsActive = inactive
	if err := repo.UpdateFields(ctx, &a, "is_active"); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	tools, err := repo.FindWhere(ctx, inventory.InCategory("TOOLS"), inventory.Active(), inventory.NotDeleted())
	if err != nil {
		t.Fatalf("FindWhere() error = %v", err)
	}
	if len(tools) != 1 || tools[0].SKU != "A-2" {
		t.Fatalf("FindWhere() = %+v, want only A-2", tools)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("FindAll() len = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("FindAll() not ordered by id: %d before %d", all[i-1].ID, all[i].ID)
		}
	}
}

func TestFindWhereFoldsNonASCIICategories(t *testing.T) {
	repo := newRepo(t)
	memory := inventorytest.NewRepository()
	ctx := context.Background()

	p := insert(t, repo, "E-1", "Électronique", 1)
	insert(t, repo, "E-2", "Outils", 1)
	mp := p
	mp.ID = 0
	if err := memory.Insert(ctx, &mp); err != nil {
		t.Fatalf("memory Insert() error = %v", err)
	}

	for _, category := range []string{"Électronique", "électronique", "ÉLECTRONIQUE", "  électronique "} {
		got, err := repo.FindWhere(ctx, inventory.InCategory(category), inventory.NotDeleted())
		if err != nil {
			t.Fatalf("FindWhere(%q) error = %v", category, err)
		}
		if len(got) != 1 || got[0].SKU != "E-1" {
			t.Errorf("FindWhere(%q) = %+v, want only E-1", category, got)
		}

		want, err := memory.FindWhere(ctx, inventory.InCategory(category), inventory.NotDeleted())
		if err != nil {
			t.Fatalf("memory FindWhere(%q) error = %v", category, err)
		}
		if len(want) != len(got) {
			t.Errorf("FindWhere(%q): sqlite returned %d rows, memory %d", category, len(got), len(want))
		}
	}

	// Changing the category moves the row to the new folded key.
	p.Category = "Maison"
	if err := repo.UpdateFields(ctx, &p, "category"); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	old, err := repo.FindWhere(ctx, inventory.InCategory("électronique"))
	if err != nil {
		t.Fatalf("FindWhere() error = %v", err)
	}
	if len(old) != 0 {
		t.Errorf("old category still matches %+v", old)
	}
	moved, err := repo.FindWhere(ctx, inventory.InCategory("MAISON"))
	if err != nil {
		t.Fatalf("FindWhere() error = %v", err)
	}
	if len(moved) != 1 || moved[0].Category != "Maison" {
		t.Fatalf("new category = %+v, want E-1 under Maison", moved)
	}
	if moved[0].CategoryKey != "" {
		t.Errorf("CategoryKey loaded as %q, want it left unread", moved[0].CategoryKey)
	}
}

func TestUpdateFieldsWritesOnlyNamedColumns(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := insert(t, repo, "A-1", "Tools", 5)

	p.Name = "Renamed"
	p.Price = 99
	if err := repo.UpdateFields(ctx, &p, "name"); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	got, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", got.Name)
	}
	if got.Price != 10 {
		t.Errorf("Price = %v, want the stored 10", got.Price)
	}
}

func TestSoftDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := insert(t, repo, "A-1", "Tools", 5)

	if err := repo.SoftDelete(ctx, p.ID, now); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, p.ID); !inventory.IsNotFound(err) {
		t.Fatalf("FindByID after delete: expected not found, got %v", err)
	}
	if err := repo.SoftDelete(ctx, p.ID, now); !inventory.IsNotFound(err) {
		t.Fatalf("second SoftDelete: expected not found, got %v", err)
	}

	// The row is still there and its SKU stays taken.
	exists, err := repo.Exists(ctx, inventory.SKUEquals("A-1"))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Fatal("soft deleted SKU should still exist")
	}

	live, err := repo.CountWhere(ctx, inventory.NotDeleted())
	if err != nil {
		t.Fatalf("CountWhere() error = %v", err)
	}
	total, _ := repo.CountWhere(ctx)
	if live != 0 || total != 1 {
		t.Fatalf("counts: live=%d total=%d, want 0 and 1", live, total)
	}
}

func TestAdjustStock(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := insert(t, repo, "A-1", "Tools", 5)

	later := now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		got, err := repo.AdjustStock(ctx, p.ID, -5, false, later)
		if err != nil {
			t.Fatalf("AdjustStock() error = %v", err)
		}
		p = got
	}
	if p.StockQuantity != -5 {
		t.Fatalf("StockQuantity = %d, want -5", p.StockQuantity)
	}
	if !p.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, later)
	}

	p, err := repo.AdjustStock(ctx, p.ID, 8, true, later)
	if err != nil {
		t.Fatalf("AdjustStock() error = %v", err)
	}
	if p.StockQuantity != 3 {
		t.Fatalf("StockQuantity = %d, want 3", p.StockQuantity)
	}
	p, err = repo.AdjustStock(ctx, p.ID, -10, true, later)
	if err != nil {
		t.Fatalf("AdjustStock() error = %v", err)
	}
	if p.StockQuantity != 0 {
		t.Fatalf("clamped StockQuantity = %d, want 0", p.StockQuantity)
	}

	if _, err := repo.AdjustStock(ctx, 999, 1, false, later); !inventory.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAdjustStock(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := insert(t, repo, "A-1", "Tools", 0)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := 2
			if i%2 == 1 {
				delta = -1
			}
			if _, err := repo.AdjustStock(ctx, p.ID, delta, false, now); err != nil {
				t.Errorf("AdjustStock() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if want := workers / 2; got.StockQuantity != want {
		t.Fatalf("StockQuantity = %d, want %d", got.StockQuantity, want)
	}
}

func TestSeed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	n, err := storage.Seed(ctx, repo, now)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if n != len(storage.SampleProducts()) {
		t.Fatalf("Seed() inserted %d, want %d", n, len(storage.SampleProducts()))
	}

	again, err := storage.Seed(ctx, repo, now)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if again != 0 {
		t.Fatalf("second Seed() inserted %d, want 0", again)
	}
}

func TestServiceOverSQLite(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	backend, err := cacheinfra.NewMemoryBackend(cacheinfra.DefaultMemoryConfig(), cacheinfra.WithClock(clock))
	if err != nil {
		t.Fatalf("NewMemoryBackend() error = %v", err)
	}
	cacheSvc, err := cache.NewService(backend)
	if err != nil {
		t.Fatalf("cache.NewService() error = %v", err)
	}
	svc, err := inventory.NewService(newRepo(t), cacheSvc, inventory.WithClock(clock))
	if err != nil {
		t.Fatalf("inventory.NewService() error = %v", err)
	}
	ctx := context.Background()

	products := testsupport.LoadCatalog(t, svc)

	garden, _, err := svc.GetByCategory(ctx, "GARDEN")
	if err != nil {
		t.Fatalf("GetByCategory() error = %v", err)
	}
	if len(garden) != 2 {
		t.Fatalf("GetByCategory() len = %d, want 2", len(garden))
	}

	hose := products[2]
	if _, err := svc.AdjustStock(ctx, hose.ID, 4); err != nil {
		t.Fatalf("AdjustStock() error = %v", err)
	}
	got, hit, err := svc.GetByID(ctx, hose.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if hit || got.StockQuantity != 4 {
		t.Fatalf("GetByID() = %+v hit=%v, want fresh stock 4", got, hit)
	}

	stats, _, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalProducts != 4 || stats.OutOfStockProducts != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := svc.Create(ctx, testsupport.Catalog(t)[0]); !inventory.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
