package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/pkg/enums"
)

// MediaAsset records an uploaded blob and the catalog entity it backs.
// A row is live while DeletedAt is null; retiring sets DeletedAt and
// the blob is removed out of band.
type MediaAsset struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PublicID     string                  `gorm:"column:public_id;not null"`
	URL          string                  `gorm:"column:url;not null"`
	ResourceType enums.MediaResourceType `gorm:"column:resource_type;type:media_resource_type;not null"`
	RefType      enums.MediaRefType      `gorm:"column:ref_type;type:media_ref_type;not null"`
	RefID        uuid.UUID               `gorm:"column:ref_id;type:uuid;not null"`
	SizeBytes    int64                   `gorm:"column:size_bytes;not null;default:0"`
	Format       *string                 `gorm:"column:format"`
	CreatedBy    uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	DeletedAt    *time.Time              `gorm:"column:deleted_at"`
}

// BeforeCreate assigns an ID when the insert does not carry one.
func (m *MediaAsset) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
