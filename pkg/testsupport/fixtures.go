package testsupport

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-inventory-cache/internal/storage"
	"github.com/goliatone/go-inventory-cache/inventory"
	"github.com/uptrace/bun"
)

//go:embed testdata/catalog.json
var catalogJSON []byte

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// Catalog returns the shared product fixture: two tools, one out of stock
// garden item and one garden item whose category differs only in case.
func Catalog(t *testing.T) []inventory.CreateProductInput {
	t.Helper()

	var inputs []inventory.CreateProductInput
	if err := json.Unmarshal(catalogJSON, &inputs); err != nil {
		t.Fatalf("failed to unmarshal catalog fixture: %v", err)
	}
	return inputs
}

// LoadCatalog creates every product of the catalog fixture through svc and
// returns them in insertion order.
func LoadCatalog(t *testing.T, svc *inventory.Service) []inventory.Product {
	t.Helper()

	var out []inventory.Product
	for _, in := range Catalog(t) {
		p, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("failed to create fixture product %s: %v", in.SKU, err)
		}
		out = append(out, p)
	}
	return out
}

// OpenSQLite returns a bun.DB over a private in-memory SQLite database with
// the product schema in place. The database is closed when the test ends.
func OpenSQLite(t *testing.T) *bun.DB {
	t.Helper()

	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}
