package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/pagination"
)

// Repository persists products and their category links, attribute
// definitions, and gallery image rows.
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

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists all scalar fields of the product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product with its brand, active category links,
// active attribute definitions, and gallery images.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Categories", "is_active = ?", true).
		Preload("Attributes", "is_active = ?", true).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByID loads the bare product row when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByID loads the product row under a row-level write lock.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveBySlug returns the active product holding the slug, or nil.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
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

// ListFilter narrows the paginated product listing.
type ListFilter struct {
	Status     string
	BrandID    *uuid.UUID
	CategoryID *uuid.UUID
	Featured   *bool
	Bestseller *bool
}

// List returns a page of active products newest-first along with the
// total count of matching rows.
func (r *Repository) List(ctx context.Context, page pagination.PageParams, filter ListFilter) ([]models.Product, int64, error) {
	page = page.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("products.is_active = ?", true)
	if filter.Status != "" {
		query = query.Where("products.status = ?", filter.Status)
	}
	if filter.BrandID != nil {
		query = query.Where("products.brand_id = ?", *filter.BrandID)
	}
	if filter.Featured != nil {
		query = query.Where("products.is_featured = ?", *filter.Featured)
	}
	if filter.Bestseller != nil {
		query = query.Where("products.is_bestseller = ?", *filter.Bestseller)
	}
	if filter.CategoryID != nil {
		query = query.
			Joins("JOIN product_categories pc ON pc.product_id = products.id").
			Where("pc.category_id = ? AND pc.is_active = ?", *filter.CategoryID, true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Preload("Brand").
		Order("products.created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindCategoryLinks returns every link row for the product, active or
// not.
func (r *Repository) FindCategoryLinks(ctx context.Context, productID uuid.UUID) ([]models.ProductCategory, error) {
	var rows []models.ProductCategory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&rows).
		Error
	return rows, err
}

// DeactivateCategoryLinks soft-retires every active link of the
// product.
func (r *Repository) DeactivateCategoryLinks(ctx context.Context, productID, actorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductCategory{}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Updates(map[string]any{"is_active": false, "updated_by": actorID}).
		Error
}

// ReactivateCategoryLink flips an existing link back on. Returns true
// when a row matched.
func (r *Repository) ReactivateCategoryLink(ctx context.Context, productID, categoryID, actorID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductCategory{}).
		Where("product_id = ? AND category_id = ?", productID, categoryID).
		Updates(map[string]any{"is_active": true, "updated_by": actorID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// InsertCategoryLink creates a link row, ignoring the pair conflict a
// concurrent sync may have won.
func (r *Repository) InsertCategoryLink(ctx context.Context, link *models.ProductCategory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link).
		Error
}

// CreateAttribute inserts a new attribute definition.
func (r *Repository) CreateAttribute(ctx context.Context, attribute *models.ProductAttribute) (*models.ProductAttribute, error) {
	if err := r.db.WithContext(ctx).Create(attribute).Error; err != nil {
		return nil, err
	}
	return attribute, nil
}

// UpdateAttribute persists all fields of the attribute definition.
func (r *Repository) UpdateAttribute(ctx context.Context, attribute *models.ProductAttribute) (*models.ProductAttribute, error) {
	if err := r.db.WithContext(ctx).Save(attribute).Error; err != nil {
		return nil, err
	}
	return attribute, nil
}

// FindAttributeByID loads an attribute definition.
func (r *Repository) FindAttributeByID(ctx context.Context, id uuid.UUID) (*models.ProductAttribute, error) {
	var attribute models.ProductAttribute
	if err := r.db.WithContext(ctx).First(&attribute, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attribute, nil
}

// FindActiveAttributeByKey returns the product's active definition for
// the key, or nil.
func (r *Repository) FindActiveAttributeByKey(ctx context.Context, productID uuid.UUID, key string) (*models.ProductAttribute, error) {
	var rows []models.ProductAttribute
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND attribute_key = ? AND is_active = ?", productID, key, true).
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

// FindActiveAttributes lists the product's active attribute definitions
// in display order.
func (r *Repository) FindActiveAttributes(ctx context.Context, productID uuid.UUID) ([]models.ProductAttribute, error) {
	var rows []models.ProductAttribute
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("display_order ASC").
		Order("attribute_key ASC").
		Find(&rows).
		Error
	return rows, err
}

// CreateImage inserts a gallery image row.
func (r *Repository) CreateImage(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

// FindImageByID loads a gallery image row.
func (r *Repository) FindImageByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteImage removes a gallery image row. The media asset row is
// retired separately and keeps the audit trail.
func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductImage{}, "id = ?", id).Error
}
