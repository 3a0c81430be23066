package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/enums"
)

// ProductVariant is a purchasable configuration of a product. At most
// one active variant per product may be the default; the variants
// service is the only writer of IsDefault and StockStatus.
type ProductVariant struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	SKU               string            `gorm:"column:sku;not null"`
	Name              *string           `gorm:"column:name"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice         *decimal.Decimal  `gorm:"column:sale_price;type:numeric(12,2)"`
	CostPrice         *decimal.Decimal  `gorm:"column:cost_price;type:numeric(12,2)"`
	StockQuantity     int               `gorm:"column:stock_quantity;not null;default:0"`
	LowStockThreshold *int              `gorm:"column:low_stock_threshold"`
	StockStatus       enums.StockStatus `gorm:"column:stock_status;type:stock_status;not null;default:out_of_stock"`
	IsDefault         bool              `gorm:"column:is_default;not null;default:false"`
	IsActive          bool              `gorm:"column:is_active;not null;default:true"`
	CreatedBy         uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy         *uuid.UUID        `gorm:"column:updated_by;type:uuid"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Attributes []VariantAttribute `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (v *ProductVariant) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
