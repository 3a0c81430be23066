package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductAttribute defines an attribute key for a product, such as
// "size" or "color". Variant attribute values reference a definition of
// the same product. Key uniqueness holds among active rows only.
type ProductAttribute struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	AttributeKey        string    `gorm:"column:attribute_key;not null"`
	AttributeKeyDisplay string    `gorm:"column:attribute_key_display;not null"`
	DisplayOrder        int       `gorm:"column:display_order;not null;default:0"`
	IsActive            bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (a *ProductAttribute) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
