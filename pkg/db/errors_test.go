package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolationFromPgError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_product_variants_sku_active",
	})

	if !IsUniqueViolation(err, "") {
		t.Fatal("expected any unique violation to match")
	}
	if !IsUniqueViolation(err, "uq_product_variants_sku_active") {
		t.Fatal("expected constraint name to match")
	}
	if IsUniqueViolation(err, "uq_products_slug_active") {
		t.Fatal("expected other constraint name not to match")
	}
}

func TestIsUniqueViolationIgnoresOtherPgErrors(t *testing.T) {
	err := &pgconn.PgError{Code: "23503", ConstraintName: "fk_products_brand_id"}
	if IsUniqueViolation(err, "") {
		t.Fatal("foreign key violation must not count as unique violation")
	}
}

func TestIsUniqueViolationFromGormTranslation(t *testing.T) {
	err := fmt.Errorf("save: %w", gorm.ErrDuplicatedKey)
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected gorm duplicated key to match")
	}
}

func TestIsUniqueViolationMessageFallback(t *testing.T) {
	err := errors.New(`ERROR: duplicate key value violates unique constraint "uq_categories_slug_active"`)
	if !IsUniqueViolation(err, "uq_categories_slug_active") {
		t.Fatal("expected message fallback to match constraint")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected message fallback to match generic check")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped ErrRecordNotFound to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("unexpected match for unrelated error")
	}
}
