package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/enums"
)

// ProductImage positions an image within a product's gallery. The blob
// itself is tracked by a MediaAsset row referencing this record.
type ProductImage struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	ImageType enums.ProductImageType `gorm:"column:image_type;type:product_image_type;not null;default:gallery"`
	AltText   *string                `gorm:"column:alt_text"`
	SortOrder int                    `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (i *ProductImage) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
