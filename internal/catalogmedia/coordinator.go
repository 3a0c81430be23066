// Package catalogmedia coordinates blob uploads with database writes so
// that media asset rows and stored blobs never drift apart. It is the
// only component allowed to pair blob operations with media_assets rows.
package catalogmedia

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/mediaassets"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
	"github.com/calderhq/storefront-backend/pkg/metrics"
	"github.com/calderhq/storefront-backend/pkg/storage"
)

// Upload is a blob staged for a coordinated save. Key pairs the upload
// with a Binding returned by the entity callback.
type Upload struct {
	Key    string
	Blob   storage.Blob
	Folder string
}

// Binding attaches an uploaded blob to a catalog entity.
type Binding struct {
	UploadKey string
	RefType   enums.MediaRefType
	RefID     uuid.UUID
}

// Coordinator runs the upload-then-commit sequence: blobs go out first,
// the database transaction runs second, and a failed transaction
// triggers a single best-effort delete of the just-uploaded blobs.
type Coordinator struct {
	dbClient *db.Client
	assets   *mediaassets.Repository
	store    storage.Provider
	logg     *logger.Logger
	metrics  *metrics.CatalogMetrics
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(dbClient *db.Client, assets *mediaassets.Repository, store storage.Provider, logg *logger.Logger, catalogMetrics *metrics.CatalogMetrics) (*Coordinator, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if assets == nil {
		return nil, fmt.Errorf("media asset repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Coordinator{
		dbClient: dbClient,
		assets:   assets,
		store:    store,
		logg:     logg,
		metrics:  catalogMetrics,
	}, nil
}

// SaveWithMedia uploads the staged blobs, then runs entityFn inside a
// transaction. entityFn performs the entity writes and returns the
// bindings that tell the coordinator which entity each blob belongs to.
// When the transaction fails every uploaded blob is deleted once; a
// failed delete is logged and counted, never retried inline.
func (c *Coordinator) SaveWithMedia(ctx context.Context, actorID uuid.UUID, entity string, uploads []Upload, entityFn func(tx *gorm.DB) ([]Binding, error)) ([]models.MediaAsset, error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveSaveDuration(entity, time.Since(start))
	}()

	uploaded := make(map[string]*storage.UploadResult, len(uploads))
	for _, upload := range uploads {
		if upload.Key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload key is required")
		}
		if _, exists := uploaded[upload.Key]; exists {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate upload key %q", upload.Key))
		}
		result, err := c.store.Upload(ctx, upload.Blob, storage.UploadOptions{Folder: upload.Folder})
		if err != nil {
			c.metrics.IncUpload(entity, "failure")
			c.cleanupBlobs(ctx, entity, collectPublicIDs(uploaded))
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("upload blob %q", upload.Key))
		}
		c.metrics.IncUpload(entity, "success")
		uploaded[upload.Key] = result
	}

	var saved []models.MediaAsset
	err := c.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bindings, err := entityFn(tx)
		if err != nil {
			return err
		}
		txAssets := c.assets.WithTx(tx)
		saved = make([]models.MediaAsset, 0, len(bindings))
		for _, binding := range bindings {
			result, ok := uploaded[binding.UploadKey]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("binding references unknown upload %q", binding.UploadKey))
			}
			asset, err := txAssets.Create(ctx, newAssetRow(actorID, binding, result))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert media asset")
			}
			saved = append(saved, *asset)
		}
		return nil
	})
	if err != nil {
		c.cleanupBlobs(ctx, entity, collectPublicIDs(uploaded))
		return nil, err
	}
	return saved, nil
}

// ReplaceMedia swaps the live asset of one entity for a new blob. The
// new blob is uploaded first, the old asset rows are retired in the
// same transaction as the entity write, and the old blobs are deleted
// only after the transaction commits.
func (c *Coordinator) ReplaceMedia(ctx context.Context, actorID uuid.UUID, upload Upload, binding Binding, entityFn func(tx *gorm.DB) error) (*models.MediaAsset, error) {
	entity := binding.RefType.String()
	start := time.Now()
	defer func() {
		c.metrics.ObserveSaveDuration(entity, time.Since(start))
	}()

	result, err := c.store.Upload(ctx, upload.Blob, storage.UploadOptions{Folder: upload.Folder})
	if err != nil {
		c.metrics.IncUpload(entity, "failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload replacement blob")
	}
	c.metrics.IncUpload(entity, "success")

	var saved *models.MediaAsset
	var retired []models.MediaAsset
	err = c.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if entityFn != nil {
			if err := entityFn(tx); err != nil {
				return err
			}
		}
		txAssets := c.assets.WithTx(tx)
		rows, err := txAssets.RetireByRef(ctx, binding.RefType, binding.RefID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: retire media assets")
		}
		retired = rows
		asset, err := txAssets.Create(ctx, newAssetRow(actorID, binding, result))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert media asset")
		}
		saved = asset
		return nil
	})
	if err != nil {
		c.cleanupBlobs(ctx, entity, []string{result.PublicID})
		return nil, err
	}

	// old blobs go only after the commit so a rollback never loses them
	c.cleanupBlobs(ctx, entity, publicIDsOf(retired))
	return saved, nil
}

// RemoveMedia runs entityFn and retires every live asset of the entity
// in one transaction, then deletes the blobs after commit.
func (c *Coordinator) RemoveMedia(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID, entityFn func(tx *gorm.DB) error) error {
	entity := refType.String()
	var retired []models.MediaAsset
	err := c.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if entityFn != nil {
			if err := entityFn(tx); err != nil {
				return err
			}
		}
		rows, err := c.assets.WithTx(tx).RetireByRef(ctx, refType, refID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: retire media assets")
		}
		retired = rows
		return nil
	})
	if err != nil {
		return err
	}
	c.cleanupBlobs(ctx, entity, publicIDsOf(retired))
	return nil
}

// cleanupBlobs deletes blobs best-effort. Failures are aggregated,
// logged, and counted; a blob that cannot be deleted is leaked, with
// its public ID kept on the retired asset row for manual cleanup.
func (c *Coordinator) cleanupBlobs(ctx context.Context, entity string, publicIDs []string) {
	var errs error
	for _, publicID := range publicIDs {
		if err := c.store.Delete(ctx, publicID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete blob %s: %w", publicID, err))
			c.metrics.IncCompensationFailure(entity)
		}
	}
	if errs != nil {
		c.logg.Error(ctx, "media blob cleanup failed, blobs orphaned", errs)
	}
}

func newAssetRow(actorID uuid.UUID, binding Binding, result *storage.UploadResult) *models.MediaAsset {
	return &models.MediaAsset{
		PublicID:     result.PublicID,
		URL:          result.URL,
		ResourceType: resourceTypeOf(result.ResourceType),
		RefType:      binding.RefType,
		RefID:        binding.RefID,
		SizeBytes:    result.SizeBytes,
		Format:       formatPtr(result.Format),
		CreatedBy:    actorID,
	}
}

func resourceTypeOf(raw string) enums.MediaResourceType {
	parsed, err := enums.ParseMediaResourceType(raw)
	if err != nil {
		return enums.MediaResourceTypeOther
	}
	return parsed
}

func formatPtr(format string) *string {
	if format == "" {
		return nil
	}
	return &format
}

func collectPublicIDs(uploaded map[string]*storage.UploadResult) []string {
	ids := make([]string, 0, len(uploaded))
	for _, result := range uploaded {
		ids = append(ids, result.PublicID)
	}
	return ids
}

func publicIDsOf(assets []models.MediaAsset) []string {
	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		ids = append(ids, asset.PublicID)
	}
	return ids
}
