package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit: got %d, want %d", got, DefaultLimit)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("negative limit: got %d, want %d", got, DefaultLimit)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("oversized limit: got %d, want %d", got, MaxLimit)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("in-range limit: got %d, want 10", got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("buffered limit: got %d, want 11", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}

	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if got == nil {
		t.Fatal("expected cursor, got nil")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at: got %s, want %s", got.CreatedAt, want.CreatedAt)
	}
	if got.ID != want.ID {
		t.Fatalf("id: got %s, want %s", got.ID, want.ID)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := ParseCursor("aGVsbG8="); err == nil {
		t.Fatal("expected error for missing separator")
	}

	c, err := ParseCursor("   ")
	if err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, nil; got %v, %v", c, err)
	}
}

func TestPageParams(t *testing.T) {
	p := PageParams{}.Normalize()
	if p.Page != 1 || p.Limit != DefaultLimit {
		t.Fatalf("zero params should normalize to page 1 default limit, got %+v", p)
	}
	if got := (PageParams{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("offset: got %d, want 20", got)
	}
	if got := (PageParams{Page: -1, Limit: 10}).Offset(); got != 0 {
		t.Fatalf("negative page offset: got %d, want 0", got)
	}
}
