package controllers

import (
	"net/http"
	"strings"

	"github.com/calderhq/storefront-backend/api/middleware"
	"github.com/calderhq/storefront-backend/api/responses"
	"github.com/calderhq/storefront-backend/api/validators"
	brandsvc "github.com/calderhq/storefront-backend/internal/brands"
	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
)

// CreateBrand handles new brand records.
func CreateBrand(svc brandsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		var payload createBrandRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		brand, err := svc.Create(r.Context(), actorID, brandsvc.CreateBrandInput{
			Name:        strings.TrimSpace(payload.Name),
			Slug:        strings.TrimSpace(payload.Slug),
			Description: payload.Description,
			WebsiteURL:  payload.WebsiteURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, brand)
	}
}

// UpdateBrand patches a brand.
func UpdateBrand(svc brandsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		brandID, err := pathUUID(r, "brandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateBrandRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		brand, err := svc.Update(r.Context(), actorID, brandID, brandsvc.UpdateBrandInput{
			Name:        payload.Name,
			Slug:        payload.Slug,
			Description: payload.Description,
			WebsiteURL:  payload.WebsiteURL,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, brand)
	}
}

// GetBrand returns a single brand by id.
func GetBrand(svc brandsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		brandID, err := pathUUID(r, "brandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		brand, err := svc.FindByID(r.Context(), brandID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, brand)
	}
}

// ListBrands returns all active brands ordered by name.
func ListBrands(svc brandsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		brands, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, brands)
	}
}

// SetBrandLogo replaces the brand logo from a multipart upload.
func SetBrandLogo(svc brandsvc.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		brandID, err := pathUUID(r, "brandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := parseMultipart(r, maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := r.FormFile("logo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "logo file required"))
			return
		}
		file.Close()

		blob, reader, err := blobFromFileHeader(header)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		asset, err := svc.SetLogo(r.Context(), actorID, brandID, catalogmedia.Upload{
			Key:    "logo",
			Blob:   blob,
			Folder: "brands",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// RemoveBrandLogo retires the current brand logo.
func RemoveBrandLogo(svc brandsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "brand service unavailable"))
			return
		}

		brandID, err := pathUUID(r, "brandID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLogo(r.Context(), brandID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type createBrandRequest struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	WebsiteURL  *string `json:"website_url,omitempty" validate:"omitempty,url"`
}

type updateBrandRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	WebsiteURL  *string `json:"website_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool   `json:"is_active,omitempty"`
}
