package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a node in the catalog taxonomy. Parentage forms a forest;
// cycle prevention is enforced at the service layer before writes.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null"`
	Description *string    `gorm:"column:description"`
	SortOrder   int        `gorm:"column:sort_order;not null;default:0"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy   uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	// Children is populated when assembling trees, never persisted.
	Children []*Category `gorm:"-"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
