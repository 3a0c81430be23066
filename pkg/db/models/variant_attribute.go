package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariantAttribute holds a variant's value for one of its product's
// attribute definitions. At most one active row may exist per
// (variant, product attribute) pair.
type VariantAttribute struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID             uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	ProductAttributeID    uuid.UUID  `gorm:"column:product_attribute_id;type:uuid;not null"`
	AttributeValue        string     `gorm:"column:attribute_value;not null"`
	AttributeValueDisplay *string    `gorm:"column:attribute_value_display"`
	IsActive              bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy             uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy             *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (va *VariantAttribute) BeforeCreate(_ *gorm.DB) error {
	if va.ID == uuid.Nil {
		va.ID = uuid.New()
	}
	return nil
}
