package catalogmedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/mediaassets"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/logger"
	"github.com/calderhq/storefront-backend/pkg/storage"
)

const mediaAssetsDDL = `
CREATE TABLE media_assets (
    id TEXT PRIMARY KEY,
    public_id TEXT NOT NULL,
    url TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    ref_type TEXT NOT NULL,
    ref_id TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    format TEXT,
    created_by TEXT NOT NULL,
    created_at DATETIME,
    deleted_at DATETIME
)`

type fakeStore struct {
	uploads     []string
	deletes     []string
	failUploads map[string]error
	failDeletes map[string]error
	counter     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		failUploads: make(map[string]error),
		failDeletes: make(map[string]error),
	}
}

func (f *fakeStore) Upload(ctx context.Context, blob storage.Blob, opts storage.UploadOptions) (*storage.UploadResult, error) {
	if err, ok := f.failUploads[blob.FileName]; ok {
		return nil, err
	}
	f.counter++
	publicID := fmt.Sprintf("%s/blob-%d", opts.Folder, f.counter)
	f.uploads = append(f.uploads, publicID)
	return &storage.UploadResult{
		PublicID:     publicID,
		URL:          "https://blobs.example.com/" + publicID,
		ResourceType: "image",
		SizeBytes:    blob.SizeBytes,
		Format:       "png",
	}, nil
}

func (f *fakeStore) Delete(ctx context.Context, publicID string) error {
	if err, ok := f.failDeletes[publicID]; ok {
		return err
	}
	f.deletes = append(f.deletes, publicID)
	return nil
}

func newCoordinatorForTest(t *testing.T) (*Coordinator, *fakeStore, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(mediaAssetsDDL).Error; err != nil {
		t.Fatalf("create media_assets table: %v", err)
	}

	store := newFakeStore()
	coordinator, err := NewCoordinator(
		db.NewWithConn(conn),
		mediaassets.NewRepository(conn),
		store,
		logger.New(logger.Options{Output: io.Discard}),
		nil,
	)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return coordinator, store, conn
}

func blobNamed(name string) storage.Blob {
	return storage.Blob{
		Reader:    strings.NewReader("bytes"),
		FileName:  name,
		SizeBytes: 5,
	}
}

func TestSaveWithMediaCommitsAssetRows(t *testing.T) {
	coordinator, store, conn := newCoordinatorForTest(t)
	ctx := context.Background()
	actorID := uuid.New()
	brandID := uuid.New()

	saved, err := coordinator.SaveWithMedia(ctx, actorID, "brand", []Upload{
		{Key: "logo", Blob: blobNamed("logo.png"), Folder: "catalog/brands"},
	}, func(tx *gorm.DB) ([]Binding, error) {
		return []Binding{{UploadKey: "logo", RefType: enums.MediaRefTypeBrand, RefID: brandID}}, nil
	})
	if err != nil {
		t.Fatalf("save with media: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved asset, got %d", len(saved))
	}
	if saved[0].RefID != brandID {
		t.Fatalf("expected ref id %s, got %s", brandID, saved[0].RefID)
	}
	if saved[0].CreatedBy != actorID {
		t.Fatalf("expected created_by %s, got %s", actorID, saved[0].CreatedBy)
	}

	var count int64
	if err := conn.Model(&models.MediaAsset{}).Where("ref_id = ? AND deleted_at IS NULL", brandID).Count(&count).Error; err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 live asset row, got %d", count)
	}
	if len(store.deletes) != 0 {
		t.Fatalf("no blobs should be deleted on success, got %v", store.deletes)
	}
}

func TestSaveWithMediaCleansUpBlobsOnTxFailure(t *testing.T) {
	coordinator, store, conn := newCoordinatorForTest(t)
	ctx := context.Background()
	bang := errors.New("entity write failed")

	_, err := coordinator.SaveWithMedia(ctx, uuid.New(), "product", []Upload{
		{Key: "front", Blob: blobNamed("front.png"), Folder: "catalog/products"},
		{Key: "back", Blob: blobNamed("back.png"), Folder: "catalog/products"},
	}, func(tx *gorm.DB) ([]Binding, error) {
		return nil, bang
	})
	if !errors.Is(err, bang) {
		t.Fatalf("expected original error to surface, got %v", err)
	}

	if len(store.uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(store.uploads))
	}
	if len(store.deletes) != 2 {
		t.Fatalf("expected both uploaded blobs deleted, got %v", store.deletes)
	}

	var count int64
	if err := conn.Model(&models.MediaAsset{}).Count(&count).Error; err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no asset rows after rollback, got %d", count)
	}
}

func TestSaveWithMediaUploadFailureCleansEarlierUploads(t *testing.T) {
	coordinator, store, _ := newCoordinatorForTest(t)
	ctx := context.Background()
	store.failUploads["back.png"] = errors.New("cdn unavailable")

	_, err := coordinator.SaveWithMedia(ctx, uuid.New(), "product", []Upload{
		{Key: "front", Blob: blobNamed("front.png"), Folder: "catalog/products"},
		{Key: "back", Blob: blobNamed("back.png"), Folder: "catalog/products"},
	}, func(tx *gorm.DB) ([]Binding, error) {
		t.Fatal("entity callback must not run when uploads fail")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(store.deletes) != 1 {
		t.Fatalf("expected the first blob to be cleaned up, got %v", store.deletes)
	}
}

func TestSaveWithMediaFailedCleanupDoesNotMaskError(t *testing.T) {
	coordinator, store, _ := newCoordinatorForTest(t)
	ctx := context.Background()
	bang := errors.New("entity write failed")

	saved, err := coordinator.SaveWithMedia(ctx, uuid.New(), "category", []Upload{
		{Key: "hero", Blob: blobNamed("hero.png"), Folder: "catalog/categories"},
	}, func(tx *gorm.DB) ([]Binding, error) {
		// the upload exists by now; make its cleanup fail too
		store.failDeletes[store.uploads[0]] = errors.New("delete refused")
		return nil, bang
	})
	if saved != nil {
		t.Fatalf("expected no saved assets, got %v", saved)
	}
	if !errors.Is(err, bang) {
		t.Fatalf("cleanup failure must not shadow the original error, got %v", err)
	}
}

func TestReplaceMediaRetiresOldAndDeletesOldBlobAfterCommit(t *testing.T) {
	coordinator, store, conn := newCoordinatorForTest(t)
	ctx := context.Background()
	actorID := uuid.New()
	categoryID := uuid.New()
	binding := Binding{RefType: enums.MediaRefTypeCategory, RefID: categoryID}

	first, err := coordinator.ReplaceMedia(ctx, actorID, Upload{Blob: blobNamed("v1.png"), Folder: "catalog/categories"}, binding, nil)
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}

	second, err := coordinator.ReplaceMedia(ctx, actorID, Upload{Blob: blobNamed("v2.png"), Folder: "catalog/categories"}, binding, nil)
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if second.PublicID == first.PublicID {
		t.Fatal("expected a fresh public id for the replacement")
	}

	if len(store.deletes) != 1 || store.deletes[0] != first.PublicID {
		t.Fatalf("expected old blob %s deleted after commit, got %v", first.PublicID, store.deletes)
	}

	var live int64
	if err := conn.Model(&models.MediaAsset{}).Where("ref_id = ? AND deleted_at IS NULL", categoryID).Count(&live).Error; err != nil {
		t.Fatalf("count live assets: %v", err)
	}
	if live != 1 {
		t.Fatalf("expected exactly one live asset, got %d", live)
	}
}

func TestReplaceMediaRollbackKeepsOldBlob(t *testing.T) {
	coordinator, store, conn := newCoordinatorForTest(t)
	ctx := context.Background()
	actorID := uuid.New()
	categoryID := uuid.New()
	binding := Binding{RefType: enums.MediaRefTypeCategory, RefID: categoryID}

	first, err := coordinator.ReplaceMedia(ctx, actorID, Upload{Blob: blobNamed("v1.png"), Folder: "catalog/categories"}, binding, nil)
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}

	bang := errors.New("entity write failed")
	_, err = coordinator.ReplaceMedia(ctx, actorID, Upload{Blob: blobNamed("v2.png"), Folder: "catalog/categories"}, binding, func(tx *gorm.DB) error {
		return bang
	})
	if !errors.Is(err, bang) {
		t.Fatalf("expected original error, got %v", err)
	}

	// the new blob is cleaned up, the old one stays
	if len(store.deletes) != 1 || store.deletes[0] == first.PublicID {
		t.Fatalf("expected only the new blob deleted, got %v", store.deletes)
	}

	live, err := mediaassets.NewRepository(conn).FindLiveByRef(ctx, enums.MediaRefTypeCategory, categoryID)
	if err != nil {
		t.Fatalf("find live: %v", err)
	}
	if live == nil || live.PublicID != first.PublicID {
		t.Fatalf("expected original asset to stay live, got %+v", live)
	}
}

func TestRemoveMediaRetiresAndDeletes(t *testing.T) {
	coordinator, store, conn := newCoordinatorForTest(t)
	ctx := context.Background()
	brandID := uuid.New()
	binding := Binding{RefType: enums.MediaRefTypeBrand, RefID: brandID}

	asset, err := coordinator.ReplaceMedia(ctx, uuid.New(), Upload{Blob: blobNamed("logo.png"), Folder: "catalog/brands"}, binding, nil)
	if err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	if err := coordinator.RemoveMedia(ctx, enums.MediaRefTypeBrand, brandID, nil); err != nil {
		t.Fatalf("remove media: %v", err)
	}
	if len(store.deletes) != 1 || store.deletes[0] != asset.PublicID {
		t.Fatalf("expected blob %s deleted, got %v", asset.PublicID, store.deletes)
	}

	live, err := mediaassets.NewRepository(conn).FindLiveByRef(ctx, enums.MediaRefTypeBrand, brandID)
	if err != nil {
		t.Fatalf("find live: %v", err)
	}
	if live != nil {
		t.Fatalf("expected no live asset, got %+v", live)
	}
}
