package controllers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/calderhq/storefront-backend/api/middleware"
	"github.com/calderhq/storefront-backend/api/responses"
	"github.com/calderhq/storefront-backend/api/validators"
	productsvc "github.com/calderhq/storefront-backend/internal/products"
	"github.com/calderhq/storefront-backend/pkg/config"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
	"github.com/calderhq/storefront-backend/pkg/pagination"
	"github.com/calderhq/storefront-backend/pkg/types"
)

// CreateProduct handles product creation. A JSON body creates the bare
// product; a multipart body carries a "payload" JSON field plus
// "images" files that are uploaded in the same request.
func CreateProduct(svc productsvc.Service, logg *logger.Logger, media config.MediaConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		var payload createProductRequest
		var files []*multipart.FileHeader

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := parseMultipart(r, media.MaxUploadBytes); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			raw := r.FormValue("payload")
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload field required"))
				return
			}
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload field"))
				return
			}
			if r.MultipartForm != nil {
				files = r.MultipartForm.File["images"]
			}
			if len(files) > media.MaxImagesPerProduct {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "too many images").WithDetails(map[string]any{"max": media.MaxImagesPerProduct}))
				return
			}
		} else if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		closers := make([]multipart.File, 0, len(files))
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		for i, header := range files {
			blob, reader, blobErr := blobFromFileHeader(header)
			if blobErr != nil {
				responses.WriteError(r.Context(), logg, w, blobErr)
				return
			}
			closers = append(closers, reader)
			input.Images = append(input.Images, productsvc.ImageUpload{
				Blob:      blob,
				ImageType: enums.ProductImageTypeGallery,
				SortOrder: i,
			})
		}

		product, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct patches a product, including category resync when
// category_ids is present.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), actorID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProduct returns one product with brand, categories, attributes
// and images preloaded.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts returns a filtered, paginated product listing.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := listFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.PageParams{Page: page, Limit: limit}
		products, total, err := svc.List(r.Context(), params, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, products, types.PageMeta{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
		})
	}
}

// SyncProductCategories replaces the product's category set.
func SyncProductCategories(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload syncCategoriesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryIDs, err := parseUUIDList(payload.CategoryIDs, "invalid category id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SyncCategories(r.Context(), actorID, productID, categoryIDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "synced"})
	}
}

// AddProductImage uploads one image and attaches it to the product.
func AddProductImage(svc productsvc.Service, logg *logger.Logger, media config.MediaConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := parseMultipart(r, media.MaxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file required"))
			return
		}
		file.Close()

		blob, reader, err := blobFromFileHeader(header)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		input := productsvc.ImageUpload{Blob: blob}
		if raw := strings.TrimSpace(r.FormValue("image_type")); raw != "" {
			imageType, parseErr := enums.ParseProductImageType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid image type"))
				return
			}
			input.ImageType = imageType
		}
		if alt := strings.TrimSpace(r.FormValue("alt_text")); alt != "" {
			input.AltText = &alt
		}
		if raw := strings.TrimSpace(r.FormValue("sort_order")); raw != "" {
			sortOrder, parseErr := parseFormInt(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			input.SortOrder = sortOrder
		}

		image, err := svc.AddImage(r.Context(), actorID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, image)
	}
}

// RemoveProductImage deletes one product image and its blob.
func RemoveProductImage(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		imageID, err := pathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveImage(r.Context(), productID, imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CreateProductAttribute defines an attribute key on a product.
func CreateProductAttribute(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createAttributeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attribute, err := svc.CreateAttribute(r.Context(), actorID, productID, productsvc.AttributeInput{
			AttributeKey:        strings.TrimSpace(payload.AttributeKey),
			AttributeKeyDisplay: strings.TrimSpace(payload.AttributeKeyDisplay),
			DisplayOrder:        payload.DisplayOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, attribute)
	}
}

// UpdateProductAttribute patches an attribute definition.
func UpdateProductAttribute(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		attributeID, err := pathUUID(r, "attributeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateAttributeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attribute, err := svc.UpdateAttribute(r.Context(), actorID, attributeID, productsvc.UpdateAttributeInput{
			AttributeKeyDisplay: payload.AttributeKeyDisplay,
			DisplayOrder:        payload.DisplayOrder,
			IsActive:            payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attribute)
	}
}

// ListProductAttributes returns the product's active attribute keys.
func ListProductAttributes(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attributes, err := svc.ListAttributes(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attributes)
	}
}

type createProductRequest struct {
	Name             string   `json:"name" validate:"required"`
	Slug             string   `json:"slug,omitempty"`
	ShortDescription *string  `json:"short_description,omitempty"`
	LongDescription  *string  `json:"long_description,omitempty"`
	Status           string   `json:"status,omitempty"`
	IsFeatured       bool     `json:"is_featured,omitempty"`
	IsBestseller     bool     `json:"is_bestseller,omitempty"`
	BrandID          *string  `json:"brand_id,omitempty" validate:"omitempty,uuid"`
	CategoryIDs      []string `json:"category_ids,omitempty"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	var status enums.ProductStatus
	if trimmed := strings.TrimSpace(r.Status); trimmed != "" {
		parsed, err := enums.ParseProductStatus(trimmed)
		if err != nil {
			return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	brandID, err := parseOptionalUUID(r.BrandID, "invalid brand id")
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	categoryIDs, err := parseUUIDList(r.CategoryIDs, "invalid category id")
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	return productsvc.CreateProductInput{
		Name:             strings.TrimSpace(r.Name),
		Slug:             strings.TrimSpace(r.Slug),
		ShortDescription: r.ShortDescription,
		LongDescription:  r.LongDescription,
		Status:           status,
		IsFeatured:       r.IsFeatured,
		IsBestseller:     r.IsBestseller,
		BrandID:          brandID,
		CategoryIDs:      categoryIDs,
	}, nil
}

type updateProductRequest struct {
	Name             *string   `json:"name,omitempty"`
	Slug             *string   `json:"slug,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty"`
	LongDescription  *string   `json:"long_description,omitempty"`
	Status           *string   `json:"status,omitempty"`
	IsFeatured       *bool     `json:"is_featured,omitempty"`
	IsBestseller     *bool     `json:"is_bestseller,omitempty"`
	BrandID          *string   `json:"brand_id,omitempty" validate:"omitempty,uuid"`
	ClearBrand       bool      `json:"clear_brand,omitempty"`
	IsActive         *bool     `json:"is_active,omitempty"`
	CategoryIDs      *[]string `json:"category_ids,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	var status *enums.ProductStatus
	if r.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = &parsed
	}

	brandID, err := parseOptionalUUID(r.BrandID, "invalid brand id")
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}

	var categoryIDs *[]uuid.UUID
	if r.CategoryIDs != nil {
		parsed, listErr := parseUUIDList(*r.CategoryIDs, "invalid category id")
		if listErr != nil {
			return productsvc.UpdateProductInput{}, listErr
		}
		categoryIDs = &parsed
	}

	return productsvc.UpdateProductInput{
		Name:             r.Name,
		Slug:             r.Slug,
		ShortDescription: r.ShortDescription,
		LongDescription:  r.LongDescription,
		Status:           status,
		IsFeatured:       r.IsFeatured,
		IsBestseller:     r.IsBestseller,
		BrandID:          brandID,
		ClearBrand:       r.ClearBrand,
		IsActive:         r.IsActive,
		CategoryIDs:      categoryIDs,
	}, nil
}

type syncCategoriesRequest struct {
	CategoryIDs []string `json:"category_ids" validate:"required"`
}

type createAttributeRequest struct {
	AttributeKey        string `json:"attribute_key" validate:"required"`
	AttributeKeyDisplay string `json:"attribute_key_display,omitempty"`
	DisplayOrder        int    `json:"display_order,omitempty" validate:"omitempty,min=0"`
}

type updateAttributeRequest struct {
	AttributeKeyDisplay *string `json:"attribute_key_display,omitempty"`
	DisplayOrder        *int    `json:"display_order,omitempty" validate:"omitempty,min=0"`
	IsActive            *bool   `json:"is_active,omitempty"`
}

func listFilterFromQuery(r *http.Request) (productsvc.ListFilter, error) {
	var filter productsvc.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseProductStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = status.String()
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("brand_id")); raw != "" {
		brandID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid brand id")
		}
		filter.BrandID = &brandID
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
		}
		filter.CategoryID = &categoryID
	}

	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return filter, err
	}
	filter.Featured = featured

	bestseller, err := validators.ParseQueryBool(r, "bestseller")
	if err != nil {
		return filter, err
	}
	filter.Bestseller = bestseller

	return filter, nil
}

func parseUUIDList(values []string, message string) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
		}
		result = append(result, parsed)
	}
	return result, nil
}
