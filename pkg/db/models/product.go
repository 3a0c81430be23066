package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/enums"
)

// Product is the canonical catalog listing. Pricing and inventory live
// on its variants.
type Product struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BrandID          *uuid.UUID          `gorm:"column:brand_id;type:uuid"`
	Name             string              `gorm:"column:name;not null"`
	Slug             string              `gorm:"column:slug;not null"`
	ShortDescription *string             `gorm:"column:short_description"`
	LongDescription  *string             `gorm:"column:long_description"`
	Status           enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:draft"`
	IsFeatured       bool                `gorm:"column:is_featured;not null;default:false"`
	IsBestseller     bool                `gorm:"column:is_bestseller;not null;default:false"`
	IsActive         bool                `gorm:"column:is_active;not null;default:true"`
	CreatedBy        uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy        *uuid.UUID          `gorm:"column:updated_by;type:uuid"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Brand      *Brand             `gorm:"foreignKey:BrandID"`
	Categories []ProductCategory  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Attributes []ProductAttribute `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants   []ProductVariant   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images     []ProductImage     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
