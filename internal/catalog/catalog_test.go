package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/riftwatch/riftwatch/internal/world"
)

func openTemp(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSeedAndLookup(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	err := c.Seed(ctx, []world.MobInfo{
		{TypeID: 10, Name: "Wolf", Tier: 3, Category: "beast"},
		{TypeID: 11, Name: "Bear", Tier: 5, Category: "beast"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	info, ok := c.Lookup(11)
	if !ok || info.Name != "Bear" || info.Tier != 5 {
		t.Fatalf("unexpected lookup result %+v, %v", info, ok)
	}
	if _, ok := c.Lookup(99); ok {
		t.Fatal("expected miss for unknown type")
	}

	n, err := c.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 rows, got %d, %v", n, err)
	}
}

func TestSeedInvalidatesCachedMiss(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	if _, ok := c.Lookup(7); ok {
		t.Fatal("expected miss on empty catalog")
	}
	if err := c.Seed(ctx, []world.MobInfo{{TypeID: 7, Name: "Imp"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if info, ok := c.Lookup(7); !ok || info.Name != "Imp" {
		t.Fatalf("expected hit after seed, got %+v", info)
	}
}

func TestImportYAML(t *testing.T) {
	c := openTemp(t)
	path := filepath.Join(t.TempDir(), "mobs.yaml")
	data := []byte("mobs:\n  - type_id: 42\n    name: Keeper\n    tier: 6\n    category: boss\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Import(context.Background(), path); err != nil {
		t.Fatalf("import: %v", err)
	}
	info, ok := c.Lookup(42)
	if !ok || info.Category != "boss" {
		t.Fatalf("unexpected import result %+v", info)
	}
}

func TestCatalogSatisfiesMobCatalog(t *testing.T) {
	var _ world.MobCatalog = openTemp(t)
}
