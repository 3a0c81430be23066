package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/calderhq/storefront-backend/pkg/db/models"
)

func seedCategory(t *testing.T, repo *Repository, name string, parentID *uuid.UUID, active bool) *models.Category {
	t.Helper()

	created, err := repo.Create(context.Background(), &models.Category{
		Name:      name,
		Slug:      fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		ParentID:  parentID,
		IsActive:  active,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("seed category %q: %v", name, err)
	}
	return created
}

func TestSubtreeRowsWalksDescendants(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	root := seedCategory(t, repo, "electronics", nil, true)
	phones := seedCategory(t, repo, "phones", &root.ID, true)
	cases := seedCategory(t, repo, "cases", &phones.ID, true)
	seedCategory(t, repo, "retired", &root.ID, false)

	rows, err := repo.SubtreeRows(ctx, root.ID)
	if err != nil {
		t.Fatalf("subtree rows: %v", err)
	}
	got := map[uuid.UUID]bool{}
	for _, row := range rows {
		got[row.ID] = true
	}
	for _, want := range []uuid.UUID{root.ID, phones.ID, cases.ID} {
		if !got[want] {
			t.Fatalf("missing %s in subtree", want)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("inactive rows must be excluded, got %d rows", len(rows))
	}

	ids, err := repo.DescendantIDs(ctx, root.ID)
	if err != nil {
		t.Fatalf("descendant ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 descendants, got %d", len(ids))
	}
	for _, id := range ids {
		if id == root.ID {
			t.Fatal("root must not appear in its own descendants")
		}
	}
}

func TestSubtreeRowsEmptyForInactiveRoot(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	root := seedCategory(t, repo, "dormant", nil, false)

	rows, err := repo.SubtreeRows(ctx, root.ID)
	if err != nil {
		t.Fatalf("subtree rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for inactive root, got %d", len(rows))
	}
}

func TestFindActiveBySlug(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created := seedCategory(t, repo, "accessories", nil, true)

	found, err := repo.FindActiveBySlug(ctx, created.Slug)
	if err != nil {
		t.Fatalf("find by slug: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected %s, got %+v", created.ID, found)
	}

	missing, err := repo.FindActiveBySlug(ctx, "no-such-slug-"+uuid.NewString())
	if err != nil {
		t.Fatalf("find missing slug: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing slug, got %+v", missing)
	}
}
