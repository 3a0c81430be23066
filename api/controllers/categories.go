package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calderhq/storefront-backend/api/middleware"
	"github.com/calderhq/storefront-backend/api/responses"
	"github.com/calderhq/storefront-backend/api/validators"
	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	categorysvc "github.com/calderhq/storefront-backend/internal/categories"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
)

// CreateCategory handles new category nodes in the tree.
func CreateCategory(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// UpdateCategory patches a category, including reparenting and
// deactivation.
func UpdateCategory(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		categoryID, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.Update(r.Context(), actorID, categoryID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, category)
	}
}

// GetCategoryTree returns the full active tree rooted at top level.
func GetCategoryTree(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		tree, err := svc.Tree(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tree)
	}
}

// GetCategory returns one category with its descendant subtree.
func GetCategory(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.FindWithDescendants(r.Context(), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, category)
	}
}

// SetCategoryImage replaces the category image from a multipart upload.
func SetCategoryImage(svc categorysvc.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())

		categoryID, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := parseMultipart(r, maxUploadBytes); err != nil {
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

		asset, err := svc.SetImage(r.Context(), actorID, categoryID, catalogmedia.Upload{
			Key:    "image",
			Blob:   blob,
			Folder: "categories",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// RemoveCategoryImage retires the current category image.
func RemoveCategoryImage(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveImage(r.Context(), categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	SortOrder   int     `json:"sort_order,omitempty" validate:"omitempty,min=0"`
}

func (r createCategoryRequest) toCreateInput() (categorysvc.CreateCategoryInput, error) {
	parentID, err := parseOptionalUUID(r.ParentID, "invalid parent id")
	if err != nil {
		return categorysvc.CreateCategoryInput{}, err
	}
	return categorysvc.CreateCategoryInput{
		Name:        strings.TrimSpace(r.Name),
		Slug:        strings.TrimSpace(r.Slug),
		Description: r.Description,
		ParentID:    parentID,
		SortOrder:   r.SortOrder,
	}, nil
}

type updateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	ClearParent bool    `json:"clear_parent,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (r updateCategoryRequest) toUpdateInput() (categorysvc.UpdateCategoryInput, error) {
	parentID, err := parseOptionalUUID(r.ParentID, "invalid parent id")
	if err != nil {
		return categorysvc.UpdateCategoryInput{}, err
	}
	return categorysvc.UpdateCategoryInput{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ParentID:    parentID,
		ClearParent: r.ClearParent,
		SortOrder:   r.SortOrder,
		IsActive:    r.IsActive,
	}, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return parsed, nil
}

func parseOptionalUUID(raw *string, message string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return &parsed, nil
}
