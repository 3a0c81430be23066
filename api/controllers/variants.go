package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calderhq/storefront-backend/api/middleware"
	"github.com/calderhq/storefront-backend/api/responses"
	"github.com/calderhq/storefront-backend/api/validators"
	variantsvc "github.com/calderhq/storefront-backend/internal/variants"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
)

// CreateVariant handles new variants under a product.
func CreateVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "variant service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.Create(r.Context(), actorID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// UpdateVariant patches a variant, covering default promotion, price
// changes and stock adjustments.
func UpdateVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "variant service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.Update(r.Context(), actorID, variantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// GetVariant returns one variant with its attribute values.
func GetVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "variant service unavailable"))
			return
		}

		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.FindByID(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// ListVariants returns every variant of a product, default first.
func ListVariants(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "variant service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variants, err := svc.FindAllByProductID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variants)
	}
}

// SetVariantAttributeValue assigns one attribute value on a variant.
func SetVariantAttributeValue(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "variant service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload attributeValueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attributeID, err := parseOptionalUUID(&payload.ProductAttributeID, "invalid attribute id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if attributeID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "attribute id required"))
			return
		}

		value, err := svc.SetAttributeValue(r.Context(), actorID, variantID, variantsvc.AttributeValueInput{
			ProductAttributeID:    *attributeID,
			AttributeValue:        strings.TrimSpace(payload.AttributeValue),
			AttributeValueDisplay: payload.AttributeValueDisplay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, value)
	}
}

type createVariantRequest struct {
	SKU               string  `json:"sku" validate:"required"`
	Name              *string `json:"name,omitempty"`
	Price             string  `json:"price" validate:"required"`
	SalePrice         *string `json:"sale_price,omitempty"`
	CostPrice         *string `json:"cost_price,omitempty"`
	StockQuantity     int     `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
	IsDefault         bool    `json:"is_default,omitempty"`
}

func (r createVariantRequest) toCreateInput() (variantsvc.CreateVariantInput, error) {
	price, err := parseDecimal(r.Price, "invalid price")
	if err != nil {
		return variantsvc.CreateVariantInput{}, err
	}
	salePrice, err := parseOptionalDecimal(r.SalePrice, "invalid sale price")
	if err != nil {
		return variantsvc.CreateVariantInput{}, err
	}
	costPrice, err := parseOptionalDecimal(r.CostPrice, "invalid cost price")
	if err != nil {
		return variantsvc.CreateVariantInput{}, err
	}
	return variantsvc.CreateVariantInput{
		SKU:               strings.TrimSpace(r.SKU),
		Name:              r.Name,
		Price:             price,
		SalePrice:         salePrice,
		CostPrice:         costPrice,
		StockQuantity:     r.StockQuantity,
		LowStockThreshold: r.LowStockThreshold,
		IsDefault:         r.IsDefault,
	}, nil
}

type updateVariantRequest struct {
	SKU                    *string `json:"sku,omitempty"`
	Name                   *string `json:"name,omitempty"`
	Price                  *string `json:"price,omitempty"`
	SalePrice              *string `json:"sale_price,omitempty"`
	ClearSalePrice         bool    `json:"clear_sale_price,omitempty"`
	CostPrice              *string `json:"cost_price,omitempty"`
	StockQuantity          *int    `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	LowStockThreshold      *int    `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
	ClearLowStockThreshold bool    `json:"clear_low_stock_threshold,omitempty"`
	IsDefault              *bool   `json:"is_default,omitempty"`
	IsActive               *bool   `json:"is_active,omitempty"`
}

func (r updateVariantRequest) toUpdateInput() (variantsvc.UpdateVariantInput, error) {
	price, err := parseOptionalDecimal(r.Price, "invalid price")
	if err != nil {
		return variantsvc.UpdateVariantInput{}, err
	}
	salePrice, err := parseOptionalDecimal(r.SalePrice, "invalid sale price")
	if err != nil {
		return variantsvc.UpdateVariantInput{}, err
	}
	costPrice, err := parseOptionalDecimal(r.CostPrice, "invalid cost price")
	if err != nil {
		return variantsvc.UpdateVariantInput{}, err
	}
	return variantsvc.UpdateVariantInput{
		SKU:                    r.SKU,
		Name:                   r.Name,
		Price:                  price,
		SalePrice:              salePrice,
		ClearSalePrice:         r.ClearSalePrice,
		CostPrice:              costPrice,
		StockQuantity:          r.StockQuantity,
		LowStockThreshold:      r.LowStockThreshold,
		ClearLowStockThreshold: r.ClearLowStockThreshold,
		IsDefault:              r.IsDefault,
		IsActive:               r.IsActive,
	}, nil
}

type attributeValueRequest struct {
	ProductAttributeID    string  `json:"product_attribute_id" validate:"required,uuid"`
	AttributeValue        string  `json:"attribute_value" validate:"required"`
	AttributeValueDisplay *string `json:"attribute_value_display,omitempty"`
}

func parseDecimal(raw, message string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return value, nil
}

func parseOptionalDecimal(raw *string, message string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := parseDecimal(*raw, message)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
