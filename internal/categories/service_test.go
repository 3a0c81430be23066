package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/db/models"
	"github.com/calderhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
)

const categoriesDDL = `
CREATE TABLE categories (
    id TEXT PRIMARY KEY,
    parent_id TEXT,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    description TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT true,
    created_by TEXT NOT NULL,
    updated_by TEXT,
    created_at DATETIME,
    updated_at DATETIME
);
CREATE UNIQUE INDEX uq_categories_slug_active ON categories (slug) WHERE is_active;
`

type stubCoordinator struct {
	replaceCalls []catalogmedia.Binding
	removeCalls  []uuid.UUID
}

func (s *stubCoordinator) ReplaceMedia(ctx context.Context, actorID uuid.UUID, upload catalogmedia.Upload, binding catalogmedia.Binding, entityFn func(tx *gorm.DB) error) (*models.MediaAsset, error) {
	s.replaceCalls = append(s.replaceCalls, binding)
	return &models.MediaAsset{RefType: binding.RefType, RefID: binding.RefID, CreatedBy: actorID}, nil
}

func (s *stubCoordinator) RemoveMedia(ctx context.Context, refType enums.MediaRefType, refID uuid.UUID, entityFn func(tx *gorm.DB) error) error {
	s.removeCalls = append(s.removeCalls, refID)
	return nil
}

func newServiceForTest(t *testing.T) (Service, *stubCoordinator) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(categoriesDDL).Error; err != nil {
		t.Fatalf("create categories table: %v", err)
	}

	coordinator := &stubCoordinator{}
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), coordinator)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, coordinator
}

func mustCreate(t *testing.T, svc Service, actorID uuid.UUID, input CreateCategoryInput) *models.Category {
	t.Helper()
	created, err := svc.Create(context.Background(), actorID, input)
	if err != nil {
		t.Fatalf("create category %q: %v", input.Name, err)
	}
	return created
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestCreateNormalizesSlugAndRejectsDuplicates(t *testing.T) {
	svc, _ := newServiceForTest(t)
	actorID := uuid.New()

	created := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Electronics", Slug: "  ELECTRONICS  "})
	if created.Slug != "electronics" {
		t.Fatalf("expected normalized slug, got %q", created.Slug)
	}
	if created.CreatedBy != actorID {
		t.Fatalf("expected created_by %s, got %s", actorID, created.CreatedBy)
	}

	_, err := svc.Create(context.Background(), actorID, CreateCategoryInput{Name: "Other", Slug: "electronics"})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateGeneratesSlugFromName(t *testing.T) {
	svc, _ := newServiceForTest(t)

	created := mustCreate(t, svc, uuid.New(), CreateCategoryInput{Name: "Home & Garden"})
	if created.Slug != "home-garden" {
		t.Fatalf("expected generated slug, got %q", created.Slug)
	}
}

func TestCreateRejectsMissingParent(t *testing.T) {
	svc, _ := newServiceForTest(t)
	missing := uuid.New()

	_, err := svc.Create(context.Background(), uuid.New(), CreateCategoryInput{Name: "Phones", ParentID: &missing})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestParentChangeRejectsDescendantAsParent(t *testing.T) {
	svc, _ := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()

	electronics := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Electronics"})
	phones := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Phones", ParentID: &electronics.ID})

	_, err := svc.Update(ctx, actorID, electronics.ID, UpdateCategoryInput{ParentID: &phones.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	// grandchild as parent must fail the same way
	cases := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Cases", ParentID: &phones.ID})
	_, err = svc.Update(ctx, actorID, electronics.ID, UpdateCategoryInput{ParentID: &cases.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	ids, err := svc.DescendantIDs(ctx, electronics.ID)
	if err != nil {
		t.Fatalf("descendant ids: %v", err)
	}
	for _, id := range ids {
		if id == electronics.ID {
			t.Fatal("descendants must never contain the root itself")
		}
	}
}

func TestReciprocalReparentRejectsCycle(t *testing.T) {
	svc, _ := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()

	audio := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Audio"})
	video := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Video"})

	if _, err := svc.Update(ctx, actorID, audio.ID, UpdateCategoryInput{ParentID: &video.ID}); err != nil {
		t.Fatalf("first reparent: %v", err)
	}
	_, err := svc.Update(ctx, actorID, video.ID, UpdateCategoryInput{ParentID: &audio.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	ids, err := svc.DescendantIDs(ctx, video.ID)
	if err != nil {
		t.Fatalf("descendant ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != audio.ID {
		t.Fatalf("expected audio as sole descendant, got %v", ids)
	}
}

func TestUpdateRejectsMissingParent(t *testing.T) {
	svc, _ := newServiceForTest(t)
	actorID := uuid.New()
	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Root"})
	missing := uuid.New()

	_, err := svc.Update(context.Background(), actorID, root.ID, UpdateCategoryInput{ParentID: &missing})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestParentChangeRejectsSelfParent(t *testing.T) {
	svc, _ := newServiceForTest(t)
	actorID := uuid.New()
	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Root"})

	_, err := svc.Update(context.Background(), actorID, root.ID, UpdateCategoryInput{ParentID: &root.ID})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestParentChangeAllowsUnchangedParent(t *testing.T) {
	svc, _ := newServiceForTest(t)
	actorID := uuid.New()
	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Root"})
	child := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Child", ParentID: &root.ID})

	name := "Renamed Child"
	updated, err := svc.Update(context.Background(), actorID, child.ID, UpdateCategoryInput{Name: &name, ParentID: &root.ID})
	if err != nil {
		t.Fatalf("update with unchanged parent: %v", err)
	}
	if updated.Name != "Renamed Child" {
		t.Fatalf("expected rename to apply, got %q", updated.Name)
	}
}

func TestDeactivationBlockedWhileDescendantsExist(t *testing.T) {
	svc, _ := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()
	inactive := false

	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Root"})
	child := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Child", ParentID: &root.ID})

	_, err := svc.Update(ctx, actorID, root.ID, UpdateCategoryInput{IsActive: &inactive})
	assertCode(t, err, pkgerrors.CodeValidation)

	// deactivate bottom-up
	if _, err := svc.Update(ctx, actorID, child.ID, UpdateCategoryInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate leaf: %v", err)
	}
	updated, err := svc.Update(ctx, actorID, root.ID, UpdateCategoryInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("deactivate root after leaf: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected root inactive")
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != actorID {
		t.Fatal("expected updated_by to record the actor")
	}
}

func TestSlugRenameExcludesSelf(t *testing.T) {
	svc, _ := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()

	a := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Audio", Slug: "audio"})
	mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Video", Slug: "video"})

	sameSlug := "Audio"
	if _, err := svc.Update(ctx, actorID, a.ID, UpdateCategoryInput{Slug: &sameSlug}); err != nil {
		t.Fatalf("renaming to own slug must pass: %v", err)
	}

	taken := "video"
	_, err := svc.Update(ctx, actorID, a.ID, UpdateCategoryInput{Slug: &taken})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestFindWithDescendantsBuildsSubtree(t *testing.T) {
	svc, _ := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()

	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Electronics"})
	phones := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Phones", ParentID: &root.ID})
	mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Cases", ParentID: &phones.ID})

	subtree, err := svc.FindWithDescendants(ctx, root.ID)
	if err != nil {
		t.Fatalf("find with descendants: %v", err)
	}
	if len(subtree.Children) != 1 || subtree.Children[0].ID != phones.ID {
		t.Fatalf("expected phones under electronics, got %+v", subtree.Children)
	}
	if len(subtree.Children[0].Children) != 1 {
		t.Fatal("expected cases under phones")
	}

	_, err = svc.FindWithDescendants(ctx, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateMissingCategory(t *testing.T) {
	svc, _ := newServiceForTest(t)
	name := "anything"

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), UpdateCategoryInput{Name: &name})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestSetAndRemoveImageGoThroughCoordinator(t *testing.T) {
	svc, coordinator := newServiceForTest(t)
	ctx := context.Background()
	actorID := uuid.New()
	root := mustCreate(t, svc, actorID, CreateCategoryInput{Name: "Root"})

	asset, err := svc.SetImage(ctx, actorID, root.ID, catalogmedia.Upload{})
	if err != nil {
		t.Fatalf("set image: %v", err)
	}
	if asset.RefType != enums.MediaRefTypeCategory || asset.RefID != root.ID {
		t.Fatalf("unexpected binding %+v", asset)
	}
	if len(coordinator.replaceCalls) != 1 {
		t.Fatalf("expected 1 replace call, got %d", len(coordinator.replaceCalls))
	}

	if err := svc.RemoveImage(ctx, root.ID); err != nil {
		t.Fatalf("remove image: %v", err)
	}
	if len(coordinator.removeCalls) != 1 || coordinator.removeCalls[0] != root.ID {
		t.Fatalf("expected remove call for %s, got %v", root.ID, coordinator.removeCalls)
	}
}

func TestSetImageMissingCategorySkipsUpload(t *testing.T) {
	svc, coordinator := newServiceForTest(t)

	_, err := svc.SetImage(context.Background(), uuid.New(), uuid.New(), catalogmedia.Upload{})
	assertCode(t, err, pkgerrors.CodeNotFound)
	if len(coordinator.replaceCalls) != 0 {
		t.Fatalf("expected no replace calls, got %d", len(coordinator.replaceCalls))
	}
}
