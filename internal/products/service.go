package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/brands"
	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	"github.com/calderhq/storefront-backend/internal/categories"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/pagination"
	"github.com/calderhq/storefront-backend/pkg/slug"
	"github.com/calderhq/storefront-backend/pkg/storage"
)

// Service exposes product management operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, page pagination.PageParams, filter ListFilter) ([]models.Product, int64, error)
	SyncCategories(ctx context.Context, actorID, productID uuid.UUID, categoryIDs []uuid.UUID) error
	AddImage(ctx context.Context, actorID, productID uuid.UUID, input ImageUpload) (*models.ProductImage, error)
	RemoveImage(ctx context.Context, productID, imageID uuid.UUID) error
	CreateAttribute(ctx context.Context, actorID, productID uuid.UUID, input AttributeInput) (*models.ProductAttribute, error)
	UpdateAttribute(ctx context.Context, actorID, attributeID uuid.UUID, input UpdateAttributeInput) (*models.ProductAttribute, error)
	ListAttributes(ctx context.Context, productID uuid.UUID) ([]models.ProductAttribute, error)
}

// ImageUpload pairs a blob with its gallery placement.
type ImageUpload struct {
	Blob      storage.Blob
	ImageType enums.ProductImageType
	AltText   *string
	SortOrder int
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name             string
	Slug             string
	ShortDescription *string
	LongDescription  *string
	Status           enums.ProductStatus
	IsFeatured       bool
	IsBestseller     bool
	BrandID          *uuid.UUID
	CategoryIDs      []uuid.UUID
	Images           []ImageUpload
}

// UpdateProductInput holds optional mutation values. Nil means the
// field is untouched; ClearBrand detaches the brand.
type UpdateProductInput struct {
	Name             *string
	Slug             *string
	ShortDescription *string
	LongDescription  *string
	Status           *enums.ProductStatus
	IsFeatured       *bool
	IsBestseller     *bool
	BrandID          *uuid.UUID
	ClearBrand       bool
	IsActive         *bool
	CategoryIDs      *[]uuid.UUID
}

// AttributeInput holds the payload to define an attribute key.
type AttributeInput struct {
	AttributeKey        string
	AttributeKeyDisplay string
	DisplayOrder        int
}

// UpdateAttributeInput holds optional attribute mutation values.
type UpdateAttributeInput struct {
	AttributeKeyDisplay *string
	DisplayOrder        *int
	IsActive            *bool
}

type mediaCoordinator interface {
	SaveWithMedia(ctx context.Context, actorID uuid.UUID, entity string, uploads []catalogmedia.Upload, entityFn func(tx *gorm.DB) ([]catalogmedia.Binding, error)) ([]models.MediaAsset, error)
	RemoveMedia(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID, entityFn func(tx *gorm.DB) error) error
}

type service struct {
	repo          *Repository
	brandRepo     *brands.Repository
	categoryRepo  *categories.Repository
	dbClient      *db.Client
	coordinator   mediaCoordinator
	uploadsFolder string
}

// NewService constructs a product service instance.
func NewService(repo *Repository, brandRepo *brands.Repository, categoryRepo *categories.Repository, dbClient *db.Client, coordinator mediaCoordinator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if brandRepo == nil {
		return nil, fmt.Errorf("brand repository required")
	}
	if categoryRepo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("media coordinator required")
	}
	return &service{
		repo:          repo,
		brandRepo:     brandRepo,
		categoryRepo:  categoryRepo,
		dbClient:      dbClient,
		coordinator:   coordinator,
		uploadsFolder: "products",
	}, nil
}

// Create validates references and slug availability before any blob
// leaves the process, then runs the insert and image bindings through
// the media coordinator.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	normalized := slug.Normalize(input.Slug)
	if normalized == "" {
		normalized = slug.Generate(name)
	}
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", status))
	}

	// cheap referential failures must never trigger uploads
	if input.BrandID != nil {
		if err := s.checkBrand(ctx, s.brandRepo, *input.BrandID); err != nil {
			return nil, err
		}
	}
	if err := s.checkCategories(ctx, s.categoryRepo, input.CategoryIDs); err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindActiveBySlug(ctx, normalized); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product slug")
	} else if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
	}

	uploads := make([]catalogmedia.Upload, 0, len(input.Images))
	for i, image := range input.Images {
		uploads = append(uploads, catalogmedia.Upload{
			Key:    fmt.Sprintf("image-%d", i),
			Blob:   image.Blob,
			Folder: s.uploadsFolder,
		})
	}

	var created *models.Product
	_, err := s.coordinator.SaveWithMedia(ctx, actorID, "product", uploads, func(tx *gorm.DB) ([]catalogmedia.Binding, error) {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			BrandID:          input.BrandID,
			Name:             name,
			Slug:             normalized,
			ShortDescription: input.ShortDescription,
			LongDescription:  input.LongDescription,
			Status:           status,
			IsFeatured:       input.IsFeatured,
			IsBestseller:     input.IsBestseller,
			IsActive:         true,
			CreatedBy:        actorID,
		}
		row, err := txRepo.Create(ctx, product)
		if err != nil {
			// a concurrent insert of the same slug lands here, not in the pre-check
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}

		if err := s.syncCategoryLinks(ctx, txRepo, actorID, row.ID, input.CategoryIDs); err != nil {
			return nil, err
		}

		bindings := make([]catalogmedia.Binding, 0, len(input.Images))
		for i, image := range input.Images {
			imageRow, err := txRepo.CreateImage(ctx, &models.ProductImage{
				ProductID: row.ID,
				ImageType: imageTypeOrDefault(image.ImageType),
				AltText:   image.AltText,
				SortOrder: image.SortOrder,
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product image")
			}
			bindings = append(bindings, catalogmedia.Binding{
				UploadKey: fmt.Sprintf("image-%d", i),
				RefType:   enums.MediaRefTypeProductImage,
				RefID:     imageRow.ID,
			})
		}

		created = row
		return bindings, nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, created.ID)
}

// Update mutates the product under its row lock.
func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.LockByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
		}

		if input.ClearBrand {
			product.BrandID = nil
		} else if input.BrandID != nil {
			if err := s.checkBrand(ctx, s.brandRepo.WithTx(tx), *input.BrandID); err != nil {
				return err
			}
			product.BrandID = input.BrandID
		}

		if input.Slug != nil {
			normalized := slug.Normalize(*input.Slug)
			if normalized == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
			}
			if normalized != product.Slug {
				existing, err := txRepo.FindActiveBySlug(ctx, normalized)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product slug")
				}
				if existing != nil && existing.ID != id {
					return pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
				}
				product.Slug = normalized
			}
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
			}
			product.Name = name
		}
		if input.ShortDescription != nil {
			product.ShortDescription = input.ShortDescription
		}
		if input.LongDescription != nil {
			product.LongDescription = input.LongDescription
		}
		if input.Status != nil {
			if !input.Status.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", *input.Status))
			}
			product.Status = *input.Status
		}
		if input.IsFeatured != nil {
			product.IsFeatured = *input.IsFeatured
		}
		if input.IsBestseller != nil {
			product.IsBestseller = *input.IsBestseller
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}
		product.UpdatedBy = &actorID

		if _, err := txRepo.Update(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.CategoryIDs != nil {
			if err := s.checkCategories(ctx, s.categoryRepo.WithTx(tx), *input.CategoryIDs); err != nil {
				return err
			}
			if err := s.syncCategoryLinks(ctx, txRepo, actorID, id, *input.CategoryIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, page pagination.PageParams, filter ListFilter) ([]models.Product, int64, error) {
	rows, total, err := s.repo.List(ctx, page, filter)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return rows, total, nil
}

// SyncCategories replaces the product's active category set. Prior
// links are deactivated rather than deleted so the association history
// survives, and repeating the same set is a no-op beyond timestamps.
func (s *service) SyncCategories(ctx context.Context, actorID, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.LockByID(ctx, productID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
		}
		if err := s.checkCategories(ctx, s.categoryRepo.WithTx(tx), categoryIDs); err != nil {
			return err
		}
		return s.syncCategoryLinks(ctx, txRepo, actorID, productID, categoryIDs)
	})
}

// syncCategoryLinks runs the deactivate-all, reactivate-matching,
// insert-missing sequence inside the caller's transaction.
func (s *service) syncCategoryLinks(ctx context.Context, txRepo *Repository, actorID, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if err := txRepo.DeactivateCategoryLinks(ctx, productID, actorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate category links")
	}
	seen := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		if seen[categoryID] {
			continue
		}
		seen[categoryID] = true

		matched, err := txRepo.ReactivateCategoryLink(ctx, productID, categoryID, actorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reactivate category link")
		}
		if matched {
			continue
		}
		link := &models.ProductCategory{
			ProductID:  productID,
			CategoryID: categoryID,
			IsActive:   true,
			CreatedBy:  actorID,
		}
		if err := txRepo.InsertCategoryLink(ctx, link); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category link")
		}
	}
	return nil
}

// AddImage uploads one gallery image and binds it in a single
// coordinated save.
func (s *service) AddImage(ctx context.Context, actorID, productID uuid.UUID, input ImageUpload) (*models.ProductImage, error) {
	if _, err := s.repo.FindActiveByID(ctx, productID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	uploads := []catalogmedia.Upload{{Key: "image", Blob: input.Blob, Folder: s.uploadsFolder}}
	var created *models.ProductImage
	_, err := s.coordinator.SaveWithMedia(ctx, actorID, "product_image", uploads, func(tx *gorm.DB) ([]catalogmedia.Binding, error) {
		imageRow, err := s.repo.WithTx(tx).CreateImage(ctx, &models.ProductImage{
			ProductID: productID,
			ImageType: imageTypeOrDefault(input.ImageType),
			AltText:   input.AltText,
			SortOrder: input.SortOrder,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product image")
		}
		created = imageRow
		return []catalogmedia.Binding{{
			UploadKey: "image",
			RefType:   enums.MediaRefTypeProductImage,
			RefID:     imageRow.ID,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveImage drops the gallery row, retires the media binding, and
// deletes the blob after commit.
func (s *service) RemoveImage(ctx context.Context, productID, imageID uuid.UUID) error {
	image, err := s.repo.FindImageByID(ctx, imageID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product image")
	}
	if image.ProductID != productID {
		return pkgerrors.New(pkgerrors.CodeValidation, "image does not belong to product")
	}

	return s.coordinator.RemoveMedia(ctx, enums.MediaRefTypeProductImage, imageID, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteImage(ctx, imageID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product image")
		}
		return nil
	})
}

// CreateAttribute defines a new attribute key for the product.
func (s *service) CreateAttribute(ctx context.Context, actorID, productID uuid.UUID, input AttributeInput) (*models.ProductAttribute, error) {
	key := slug.Normalize(input.AttributeKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute key is required")
	}
	display := strings.TrimSpace(input.AttributeKeyDisplay)
	if display == "" {
		display = input.AttributeKey
	}

	var created *models.ProductAttribute
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindActiveByID(ctx, productID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if existing, err := txRepo.FindActiveAttributeByKey(ctx, productID, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check attribute key")
		} else if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "attribute key already exists")
		}

		row, err := txRepo.CreateAttribute(ctx, &models.ProductAttribute{
			ProductID:           productID,
			AttributeKey:        key,
			AttributeKeyDisplay: display,
			DisplayOrder:        input.DisplayOrder,
			IsActive:            true,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "attribute key already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert attribute")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAttribute mutates an attribute definition.
func (s *service) UpdateAttribute(ctx context.Context, actorID, attributeID uuid.UUID, input UpdateAttributeInput) (*models.ProductAttribute, error) {
	var updated *models.ProductAttribute
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		attribute, err := txRepo.FindAttributeByID(ctx, attributeID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "attribute not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load attribute")
		}

		if input.AttributeKeyDisplay != nil {
			display := strings.TrimSpace(*input.AttributeKeyDisplay)
			if display == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "attribute display name is required")
			}
			attribute.AttributeKeyDisplay = display
		}
		if input.DisplayOrder != nil {
			attribute.DisplayOrder = *input.DisplayOrder
		}
		if input.IsActive != nil {
			attribute.IsActive = *input.IsActive
		}

		row, err := txRepo.UpdateAttribute(ctx, attribute)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "attribute key already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update attribute")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListAttributes(ctx context.Context, productID uuid.UUID) ([]models.ProductAttribute, error) {
	rows, err := s.repo.FindActiveAttributes(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list attributes")
	}
	return rows, nil
}

func (s *service) checkBrand(ctx context.Context, repo *brands.Repository, brandID uuid.UUID) error {
	if _, err := repo.FindActiveByID(ctx, brandID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "brand not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load brand")
	}
	return nil
}

func (s *service) checkCategories(ctx context.Context, repo *categories.Repository, categoryIDs []uuid.UUID) error {
	for _, categoryID := range categoryIDs {
		if _, err := repo.FindActiveByID(ctx, categoryID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "category not found").
					WithDetails(map[string]any{"category_id": categoryID.String()})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
	}
	return nil
}

func imageTypeOrDefault(imageType enums.ProductImageType) enums.ProductImageType {
	if imageType == "" {
		return enums.ProductImageTypeGallery
	}
	return imageType
}
