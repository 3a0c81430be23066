package variants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calderhq/storefront-backend/pkg/db/models"
)

// Repository persists product variants and their attribute values.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// LockProduct takes a row-level write lock on the product row. Every
// default-variant swap serializes on this lock, scoped per product.
func (r *Repository) LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new variant row.
func (r *Repository) Create(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// Update persists all scalar fields of the variant row.
func (r *Repository) Update(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindByID loads the variant with its active attribute values.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Attributes", "is_active = ?", true).
		First(&variant, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindActiveByID loads the bare variant row when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindAllByProductID lists the product's active variants ordered
// default-first, then most recently updated.
func (r *Repository) FindAllByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Attributes", "is_active = ?", true).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("is_default DESC").
		Order("updated_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// CountActiveByProductID counts the product's active variants.
func (r *Repository) CountActiveByProductID(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Count(&count).
		Error
	return count, err
}

// ClearDefaults unsets is_default on every active variant of the
// product except the one given. Pass uuid.Nil to clear all.
func (r *Repository) ClearDefaults(ctx context.Context, productID, exceptID, actorID uuid.UUID) error {
	query := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND is_active = ? AND is_default = ?", productID, true, true)
	if exceptID != uuid.Nil {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Updates(map[string]any{"is_default": false, "updated_by": actorID}).Error
}

// CreateAttributeValue inserts a variant attribute value row.
func (r *Repository) CreateAttributeValue(ctx context.Context, value *models.VariantAttribute) (*models.VariantAttribute, error) {
	if err := r.db.WithContext(ctx).Create(value).Error; err != nil {
		return nil, err
	}
	return value, nil
}

// FindActiveAttributeValue returns the variant's active value for the
// attribute definition, or nil.
func (r *Repository) FindActiveAttributeValue(ctx context.Context, variantID, productAttributeID uuid.UUID) (*models.VariantAttribute, error) {
	var rows []models.VariantAttribute
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND product_attribute_id = ? AND is_active = ?", variantID, productAttributeID, true).
		Limit(1).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateAttributeValue persists all fields of the value row.
func (r *Repository) UpdateAttributeValue(ctx context.Context, value *models.VariantAttribute) (*models.VariantAttribute, error) {
	if err := r.db.WithContext(ctx).Save(value).Error; err != nil {
		return nil, err
	}
	return value, nil
}
