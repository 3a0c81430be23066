package brands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/slug"
)

// Service exposes brand management operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateBrandInput) (*models.Brand, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateBrandInput) (*models.Brand, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	ListActive(ctx context.Context) ([]models.Brand, error)
	SetLogo(ctx context.Context, actorID, id uuid.UUID, upload catalogmedia.Upload) (*models.MediaAsset, error)
	RemoveLogo(ctx context.Context, id uuid.UUID) error
}

// CreateBrandInput holds the validated payload to create a brand.
type CreateBrandInput struct {
	Name        string
	Slug        string
	Description *string
	WebsiteURL  *string
}

// UpdateBrandInput holds optional mutation values. Nil means the field
// is untouched.
type UpdateBrandInput struct {
	Name        *string
	Slug        *string
	Description *string
	WebsiteURL  *string
	IsActive    *bool
}

type mediaCoordinator interface {
	ReplaceMedia(ctx context.Context, actorID uuid.UUID, upload catalogmedia.Upload, binding catalogmedia.Binding, entityFn func(tx *gorm.DB) error) (*models.MediaAsset, error)
	RemoveMedia(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID, entityFn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	dbClient    *db.Client
	coordinator mediaCoordinator
}

// NewService constructs a brand service instance.
func NewService(repo *Repository, dbClient *db.Client, coordinator mediaCoordinator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("brand repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("media coordinator required")
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		coordinator: coordinator,
	}, nil
}

// Create inserts a brand after slug validation.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateBrandInput) (*models.Brand, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}
	normalized := slug.Normalize(input.Slug)
	if normalized == "" {
		normalized = slug.Generate(name)
	}
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand slug is required")
	}

	var created *models.Brand
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if existing, err := txRepo.FindActiveBySlug(ctx, normalized); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check brand slug")
		} else if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "brand slug already exists")
		}

		brand := &models.Brand{
			Name:        name,
			Slug:        normalized,
			Description: input.Description,
			WebsiteURL:  input.WebsiteURL,
			IsActive:    true,
			CreatedBy:   actorID,
		}
		row, err := txRepo.Create(ctx, brand)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "brand slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert brand")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update mutates the brand, revalidating the slug on rename.
func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateBrandInput) (*models.Brand, error) {
	var updated *models.Brand
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		brand, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
		}

		if input.Slug != nil {
			normalized := slug.Normalize(*input.Slug)
			if normalized == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "brand slug is required")
			}
			if normalized != brand.Slug {
				existing, err := txRepo.FindActiveBySlug(ctx, normalized)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check brand slug")
				}
				if existing != nil && existing.ID != id {
					return pkgerrors.New(pkgerrors.CodeConflict, "brand slug already exists")
				}
				brand.Slug = normalized
			}
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
			}
			brand.Name = name
		}
		if input.Description != nil {
			brand.Description = input.Description
		}
		if input.WebsiteURL != nil {
			brand.WebsiteURL = input.WebsiteURL
		}
		if input.IsActive != nil {
			brand.IsActive = *input.IsActive
		}
		brand.UpdatedBy = &actorID

		row, err := txRepo.Update(ctx, brand)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "brand slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update brand")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	brand, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
	}
	return brand, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Brand, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list brands")
	}
	return rows, nil
}

// SetLogo uploads and binds the brand logo, retiring any prior one.
func (s *service) SetLogo(ctx context.Context, actorID, id uuid.UUID, upload catalogmedia.Upload) (*models.MediaAsset, error) {
	if _, err := s.repo.FindActiveByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
	}

	binding := catalogmedia.Binding{RefType: enums.MediaRefTypeBrand, RefID: id}
	return s.coordinator.ReplaceMedia(ctx, actorID, upload, binding, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).FindActiveByID(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
		}
		return nil
	})
}

// RemoveLogo retires the brand logo binding and deletes its blob.
func (s *service) RemoveLogo(ctx context.Context, id uuid.UUID) error {
	return s.coordinator.RemoveMedia(ctx, enums.MediaRefTypeBrand, id, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).FindByID(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
		}
		return nil
	})
}
