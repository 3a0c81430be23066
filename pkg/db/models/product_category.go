package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductCategory links a product to a category. Links are soft: sync
// deactivates and reactivates rows rather than deleting them, so the
// pair (product_id, category_id) stays unique for all time.
type ProductCategory struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	CategoryID uuid.UUID  `gorm:"column:category_id;type:uuid;not null"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy  uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy  *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (pc *ProductCategory) BeforeCreate(_ *gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return nil
}
