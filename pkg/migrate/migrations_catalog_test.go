package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calderhq/storefront-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_tables.sql")

	checks := []string{
		"CREATE TYPE product_status AS ENUM",
		"CREATE TYPE stock_status AS ENUM",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CREATE TABLE IF NOT EXISTS product_categories",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_products_slug_active",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_product_variants_sku_active",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_product_variants_product_default",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_product_categories_pair",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	if !strings.Contains(content, "WHERE is_default AND is_active") {
		t.Error("default variant index must be partial on is_default and is_active")
	}
}

func TestMediaAssetsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_media_assets.sql")

	checks := []string{
		"CREATE TYPE media_ref_type AS ENUM",
		"CREATE TABLE IF NOT EXISTS media_assets",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_media_assets_public_id",
		"WHERE deleted_at IS NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
