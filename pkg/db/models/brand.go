package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Brand is a manufacturer or label products can be attributed to.
type Brand struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null"`
	Description *string    `gorm:"column:description"`
	WebsiteURL  *string    `gorm:"column:website_url"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy   uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (b *Brand) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
