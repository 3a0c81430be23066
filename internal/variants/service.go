package variants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/products"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
)

// Service keeps a product's variant set consistent: exactly one active
// default while active variants exist, globally unique SKUs among
// active rows, and a stock status that always matches quantity and
// threshold.
type Service interface {
	Create(ctx context.Context, actorID, productID uuid.UUID, input CreateVariantInput) (*models.ProductVariant, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateVariantInput) (*models.ProductVariant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindAllByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
	SetAttributeValue(ctx context.Context, actorID, variantID uuid.UUID, input AttributeValueInput) (*models.VariantAttribute, error)
}

// CreateVariantInput holds the validated payload to create a variant.
type CreateVariantInput struct {
	SKU               string
	Name              *string
	Price             decimal.Decimal
	SalePrice         *decimal.Decimal
	CostPrice         *decimal.Decimal
	StockQuantity     int
	LowStockThreshold *int
	IsDefault         bool
}

// UpdateVariantInput holds optional mutation values. Nil means the
// field is untouched; the Clear flags null their column out.
type UpdateVariantInput struct {
	SKU                    *string
	Name                   *string
	Price                  *decimal.Decimal
	SalePrice              *decimal.Decimal
	ClearSalePrice         bool
	CostPrice              *decimal.Decimal
	StockQuantity          *int
	LowStockThreshold      *int
	ClearLowStockThreshold bool
	IsDefault              *bool
	IsActive               *bool
}

// AttributeValueInput holds a variant's value for one attribute
// definition of its product.
type AttributeValueInput struct {
	ProductAttributeID    uuid.UUID
	AttributeValue        string
	AttributeValueDisplay *string
}

type service struct {
	repo        *Repository
	productRepo *products.Repository
	dbClient    *db.Client
}

// NewService constructs a variant service instance.
func NewService(repo *Repository, productRepo *products.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("variant repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		dbClient:    dbClient,
	}, nil
}

// Create inserts a variant inside the product's lock scope. The first
// active variant of a product is always the default, whatever the
// caller asked for.
func (s *service) Create(ctx context.Context, actorID, productID uuid.UUID, input CreateVariantInput) (*models.ProductVariant, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	if err := validatePrices(input.Price, input.SalePrice); err != nil {
		return nil, err
	}

	var created *models.ProductVariant
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.LockProduct(ctx, productID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		activeCount, err := txRepo.CountActiveByProductID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count variants")
		}
		isDefault := input.IsDefault || activeCount == 0
		if isDefault {
			if err := txRepo.ClearDefaults(ctx, productID, uuid.Nil, actorID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear defaults")
			}
		}

		variant := &models.ProductVariant{
			ProductID:         productID,
			SKU:               sku,
			Name:              input.Name,
			Price:             input.Price,
			SalePrice:         input.SalePrice,
			CostPrice:         input.CostPrice,
			StockQuantity:     input.StockQuantity,
			LowStockThreshold: input.LowStockThreshold,
			StockStatus:       ComputeStockStatus(input.StockQuantity, input.LowStockThreshold),
			IsDefault:         isDefault,
			IsActive:          true,
			CreatedBy:         actorID,
		}
		row, err := txRepo.Create(ctx, variant)
		if err != nil {
			// a concurrent insert of the same sku lands here, never in a pre-check
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "SKU already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update mutates the variant inside its product's lock scope. The
// default flag only moves forward: promoting a variant demotes the
// current default in the same transaction, and directly unsetting the
// sole default is refused.
func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateVariantInput) (*models.ProductVariant, error) {
	var updated *models.ProductVariant
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		// resolve the product first so the lock is taken before any
		// decision is made on variant state
		probe, err := txRepo.FindActiveByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}
		if _, err := txRepo.LockProduct(ctx, probe.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
		}
		variant, err := txRepo.FindActiveByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}

		if input.IsDefault != nil {
			switch {
			case *input.IsDefault && !variant.IsDefault:
				if err := txRepo.ClearDefaults(ctx, variant.ProductID, variant.ID, actorID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear defaults")
				}
				variant.IsDefault = true
			case !*input.IsDefault && variant.IsDefault:
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot unset the default variant, promote another variant instead")
			}
		}

		if input.IsActive != nil && !*input.IsActive && variant.IsActive {
			if variant.IsDefault {
				others, err := txRepo.CountActiveByProductID(ctx, variant.ProductID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count variants")
				}
				if others > 1 {
					return pkgerrors.New(pkgerrors.CodeConflict, "cannot deactivate the default variant, promote another variant first")
				}
				variant.IsDefault = false
			}
			variant.IsActive = false
		}

		if input.SKU != nil {
			sku := strings.TrimSpace(*input.SKU)
			if sku == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
			}
			variant.SKU = sku
		}
		if input.Name != nil {
			variant.Name = input.Name
		}
		if input.Price != nil {
			variant.Price = *input.Price
		}
		if input.ClearSalePrice {
			variant.SalePrice = nil
		} else if input.SalePrice != nil {
			variant.SalePrice = input.SalePrice
		}
		if input.CostPrice != nil {
			variant.CostPrice = input.CostPrice
		}
		if err := validatePrices(variant.Price, variant.SalePrice); err != nil {
			return err
		}

		if input.StockQuantity != nil {
			variant.StockQuantity = *input.StockQuantity
		}
		if input.ClearLowStockThreshold {
			variant.LowStockThreshold = nil
		} else if input.LowStockThreshold != nil {
			variant.LowStockThreshold = input.LowStockThreshold
		}
		variant.StockStatus = ComputeStockStatus(variant.StockQuantity, variant.LowStockThreshold)
		variant.UpdatedBy = &actorID

		row, err := txRepo.Update(ctx, variant)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "SKU already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
	}
	return variant, nil
}

func (s *service) FindAllByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	rows, err := s.repo.FindAllByProductID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
	}
	return rows, nil
}

// SetAttributeValue writes the variant's value for an attribute
// definition of its own product, replacing a prior active value in
// place.
func (s *service) SetAttributeValue(ctx context.Context, actorID, variantID uuid.UUID, input AttributeValueInput) (*models.VariantAttribute, error) {
	value := strings.TrimSpace(input.AttributeValue)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute value is required")
	}

	var saved *models.VariantAttribute
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		variant, err := txRepo.FindActiveByID(ctx, variantID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}

		definition, err := s.productRepo.WithTx(tx).FindAttributeByID(ctx, input.ProductAttributeID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "attribute definition not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load attribute definition")
		}
		if !definition.IsActive || definition.ProductID != variant.ProductID {
			return pkgerrors.New(pkgerrors.CodeValidation, "attribute definition does not belong to the variant's product")
		}

		existing, err := txRepo.FindActiveAttributeValue(ctx, variantID, input.ProductAttributeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load attribute value")
		}
		if existing != nil {
			existing.AttributeValue = value
			existing.AttributeValueDisplay = input.AttributeValueDisplay
			existing.UpdatedBy = &actorID
			row, err := txRepo.UpdateAttributeValue(ctx, existing)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update attribute value")
			}
			saved = row
			return nil
		}

		row, err := txRepo.CreateAttributeValue(ctx, &models.VariantAttribute{
			VariantID:             variantID,
			ProductAttributeID:    input.ProductAttributeID,
			AttributeValue:        value,
			AttributeValueDisplay: input.AttributeValueDisplay,
			IsActive:              true,
			CreatedBy:             actorID,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "attribute value already set for this variant")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert attribute value")
		}
		saved = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func validatePrices(price decimal.Decimal, salePrice *decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if salePrice != nil && salePrice.GreaterThan(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price must not exceed price")
	}
	return nil
}
