package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calderhq/storefront-backend/pkg/db/models"
)

const subtreeQuery = `
WITH RECURSIVE subtree AS (
    SELECT id, parent_id, name, slug, description, sort_order, is_active,
           created_by, updated_by, created_at, updated_at
    FROM categories
    WHERE id = ? AND is_active
    UNION ALL
    SELECT c.id, c.parent_id, c.name, c.slug, c.description, c.sort_order, c.is_active,
           c.created_by, c.updated_by, c.created_at, c.updated_at
    FROM categories c
    JOIN subtree s ON c.parent_id = s.id
    WHERE c.is_active
)
SELECT * FROM subtree
`

// Repository persists category rows and answers tree queries.
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

// Create inserts a new category row.
func (r *Repository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// Update persists all fields of the category row.
func (r *Repository) Update(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindByID loads the category regardless of active state.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActiveByID loads the category when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// LockByID loads the category under a row-level write lock. The lock is
// the serialization point for deactivation and parent changes.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&category, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActiveBySlug returns the active category holding the slug, or nil.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var rows []models.Category
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

// ListActive returns every active category ordered for forest assembly.
func (r *Repository) ListActive(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}

// SubtreeRows returns the active category at id and all of its active
// descendants as a flat set. Empty result means the root is missing or
// inactive.
func (r *Repository) SubtreeRows(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Raw(subtreeQuery, id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DescendantIDs returns the ids of all active descendants of id,
// excluding id itself.
func (r *Repository) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.SubtreeRows(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.ID == id {
			continue
		}
		ids = append(ids, row.ID)
	}
	return ids, nil
}
