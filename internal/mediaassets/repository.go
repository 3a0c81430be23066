package mediaassets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
)

// Repository persists media asset rows. Rows are append-and-retire:
// nothing is hard-deleted, a retired row keeps its public ID so a
// leaked blob can still be traced and removed by hand.
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

// Create inserts a new media asset row.
func (r *Repository) Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// FindLiveByRef returns the newest live asset for the entity, or nil
// when none exists.
func (r *Repository) FindLiveByRef(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID) (*models.MediaAsset, error) {
	var rows []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id = ? AND deleted_at IS NULL", refType, refID).
		Order("created_at DESC").
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

// FindLiveByRefIDs returns live assets for a batch of entities keyed by ref ID.
func (r *Repository) FindLiveByRefIDs(ctx context.Context, refType enums.MediaRefType, refIDs []uuid.UUID) (map[uuid.UUID]models.MediaAsset, error) {
	result := make(map[uuid.UUID]models.MediaAsset, len(refIDs))
	if len(refIDs) == 0 {
		return result, nil
	}
	var rows []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id IN ? AND deleted_at IS NULL", refType, refIDs).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	// later rows win so each entity maps to its newest asset
	for _, row := range rows {
		result[row.RefID] = row
	}
	return result, nil
}

// Retire marks the asset deleted. Retiring an already retired asset is a no-op.
func (r *Repository) Retire(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.MediaAsset{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC()).
		Error
}

// RetireByRef retires every live asset attached to the entity and
// returns the retired rows so callers can delete the blobs.
func (r *Repository) RetireByRef(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID) ([]models.MediaAsset, error) {
	var rows []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id = ? AND deleted_at IS NULL", refType, refID).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.MediaAsset{}).
		Where("id IN ?", ids).
		Update("deleted_at", time.Now().UTC()).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
