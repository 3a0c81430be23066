package categories

import (
	"bytes"
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

// Service exposes category tree management operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateCategoryInput) (*models.Category, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateCategoryInput) (*models.Category, error)
	FindWithDescendants(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Tree(ctx context.Context) ([]*models.Category, error)
	DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	SetImage(ctx context.Context, actorID, id uuid.UUID, upload catalogmedia.Upload) (*models.MediaAsset, error)
	RemoveImage(ctx context.Context, id uuid.UUID) error
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description *string
	ParentID    *uuid.UUID
	SortOrder   int
}

// UpdateCategoryInput holds optional mutation values. Nil means the
// field is untouched; ClearParent detaches the category to root.
type UpdateCategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
	SortOrder   *int
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

// NewService constructs a category service instance.
func NewService(repo *Repository, dbClient *db.Client, coordinator mediaCoordinator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
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

// Create inserts a category after slug and parent validation.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	normalized := slug.Normalize(input.Slug)
	if normalized == "" {
		normalized = slug.Generate(name)
	}
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category slug is required")
	}

	var created *models.Category
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if existing, err := txRepo.FindActiveBySlug(ctx, normalized); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category slug")
		} else if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}

		if input.ParentID != nil {
			if _, err := txRepo.FindActiveByID(ctx, *input.ParentID); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeValidation, "parent category not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load parent category")
			}
		}

		category := &models.Category{
			ParentID:    input.ParentID,
			Name:        name,
			Slug:        normalized,
			Description: input.Description,
			SortOrder:   input.SortOrder,
			IsActive:    true,
			CreatedBy:   actorID,
		}
		row, err := txRepo.Create(ctx, category)
		if err != nil {
			// a concurrent insert of the same slug lands here, not in the pre-check
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update mutates the category under its row lock, enforcing the parent
// acyclicity and deactivation guards.
func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateCategoryInput) (*models.Category, error) {
	var updated *models.Category
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		proposedParent := input.ParentID
		if input.ClearParent {
			proposedParent = nil
		}

		category, err := lockCategoryAndParent(ctx, txRepo, id, proposedParent)
		if err != nil {
			return err
		}

		if input.ParentID != nil || input.ClearParent {
			if err := s.validateParentChange(ctx, txRepo, id, category.ParentID, proposedParent); err != nil {
				return err
			}
			category.ParentID = proposedParent
		}

		if input.IsActive != nil && !*input.IsActive && category.IsActive {
			descendants, err := txRepo.DescendantIDs(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list descendants")
			}
			if len(descendants) > 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "category has active subcategories").
					WithDetails(map[string]any{"descendant_count": len(descendants)})
			}
		}

		if input.Slug != nil {
			normalized := slug.Normalize(*input.Slug)
			if normalized == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "category slug is required")
			}
			if normalized != category.Slug {
				existing, err := txRepo.FindActiveBySlug(ctx, normalized)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category slug")
				}
				if existing != nil && existing.ID != id {
					return pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
				}
				category.Slug = normalized
			}
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
			}
			category.Name = name
		}
		if input.Description != nil {
			category.Description = input.Description
		}
		if input.SortOrder != nil {
			category.SortOrder = *input.SortOrder
		}
		if input.IsActive != nil {
			category.IsActive = *input.IsActive
		}
		category.UpdatedBy = &actorID

		row, err := txRepo.Update(ctx, category)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockCategoryAndParent locks the category row and, when a reparent
// names another row, the proposed parent as well. Locks are taken in
// ascending id order; reciprocal moves then serialize and the second
// one runs its cycle check against the first one's committed parent.
func lockCategoryAndParent(ctx context.Context, txRepo *Repository, id uuid.UUID, proposed *uuid.UUID) (*models.Category, error) {
	if proposed == nil || *proposed == id {
		return lockCategoryRow(ctx, txRepo, id)
	}

	parentID := *proposed
	if bytes.Compare(parentID[:], id[:]) < 0 {
		if err := lockParentRow(ctx, txRepo, parentID); err != nil {
			return nil, err
		}
		return lockCategoryRow(ctx, txRepo, id)
	}

	category, err := lockCategoryRow(ctx, txRepo, id)
	if err != nil {
		return nil, err
	}
	if err := lockParentRow(ctx, txRepo, parentID); err != nil {
		return nil, err
	}
	return category, nil
}

func lockCategoryRow(ctx context.Context, txRepo *Repository, id uuid.UUID) (*models.Category, error) {
	category, err := txRepo.LockByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock category")
	}
	return category, nil
}

func lockParentRow(ctx context.Context, txRepo *Repository, parentID uuid.UUID) error {
	if _, err := txRepo.LockByID(ctx, parentID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "parent category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock parent category")
	}
	return nil
}

// validateParentChange rejects self-parenting, missing parents, and
// moves that would close a cycle. Unchanged or absent parents are no-ops.
func (s *service) validateParentChange(ctx context.Context, txRepo *Repository, id uuid.UUID, current, proposed *uuid.UUID) error {
	if proposed == nil {
		return nil
	}
	if current != nil && *current == *proposed {
		return nil
	}
	if *proposed == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
	}
	if _, err := txRepo.FindActiveByID(ctx, *proposed); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "parent category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load parent category")
	}
	descendants, err := txRepo.DescendantIDs(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list descendants")
	}
	for _, descendantID := range descendants {
		if descendantID == *proposed {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot use a descendant as parent")
		}
	}
	return nil
}

// FindWithDescendants returns the active subtree rooted at id.
func (s *service) FindWithDescendants(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	rows, err := s.repo.SubtreeRows(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load subtree")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	for _, root := range BuildForest(rows) {
		if root.ID == id {
			return root, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
}

// Tree returns the full active category forest.
func (s *service) Tree(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	return BuildForest(rows), nil
}

// DescendantIDs returns the ids of the active descendants of id.
func (s *service) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.DescendantIDs(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list descendants")
	}
	return ids, nil
}

// SetImage uploads and binds the category image, retiring any prior one.
func (s *service) SetImage(ctx context.Context, actorID, id uuid.UUID, upload catalogmedia.Upload) (*models.MediaAsset, error) {
	if _, err := s.repo.FindActiveByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
	}

	binding := catalogmedia.Binding{RefType: enums.MediaRefTypeCategory, RefID: id}
	return s.coordinator.ReplaceMedia(ctx, actorID, upload, binding, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).FindActiveByID(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
		return nil
	})
}

// RemoveImage retires the category image binding and deletes its blob.
func (s *service) RemoveImage(ctx context.Context, id uuid.UUID) error {
	return s.coordinator.RemoveMedia(ctx, enums.MediaRefTypeCategory, id, nil)
}
