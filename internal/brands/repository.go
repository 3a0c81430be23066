package brands

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/db/models"
)

// Repository persists brand rows.
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

// Create inserts a new brand row.
func (r *Repository) Create(ctx context.Context, brand *models.Brand) (*models.Brand, error) {
	if err := r.db.WithContext(ctx).Create(brand).Error; err != nil {
		return nil, err
	}
	return brand, nil
}

// Update persists all fields of the brand row.
func (r *Repository) Update(ctx context.Context, brand *models.Brand) (*models.Brand, error) {
	if err := r.db.WithContext(ctx).Save(brand).Error; err != nil {
		return nil, err
	}
	return brand, nil
}

// FindByID loads the brand regardless of active state.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// FindActiveByID loads the brand when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// FindActiveBySlug returns the active brand holding the slug, or nil.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	var rows []models.Brand
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

// ListActive returns every active brand ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Brand, error) {
	var rows []models.Brand
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}
