package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if _, err := store.Create(ctx, Record{ID: "s1", UserID: "u1"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}

	if _, err := store.Create(ctx, Record{ID: "s1", UserID: "u1", Token: "t1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec, err := store.FindOne(ctx, Query{Token: "t1", UserID: "u1"})
	if err != nil || rec.ID != "s1" {
		t.Fatalf("FindOne: rec=%+v err=%v", rec, err)
	}
	if _, err := store.FindOne(ctx, Query{Token: "t1", UserID: "u2"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	next := "t2"
	later := now.Add(2 * time.Hour)
	updated, err := store.Update(ctx, "s1", Patch{Token: &next, ExpiresAt: &later})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Token != "t2" || !updated.ExpiresAt.Equal(later) || !updated.CreatedAt.Equal(now) {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := store.FindOne(ctx, Query{Token: "t1", UserID: "u1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old token must no longer resolve, got %v", err)
	}
	if _, err := store.FindOne(ctx, Query{Token: "t2", UserID: "u1"}); err != nil {
		t.Fatalf("new token must resolve: %v", err)
	}

	if _, err := store.Update(ctx, "missing", Patch{Token: &next}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of missing id, got %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("second Delete must be a no-op: %v", err)
	}
	if _, err := store.FindByID(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListByUserUsesIndexOrFallback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, r := range []Record{
		{ID: "a", UserID: "u1", Token: "ta"},
		{ID: "b", UserID: "u2", Token: "tb"},
		{ID: "c", UserID: "u1", Token: "tc"},
	} {
		if _, err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := ListByUser(ctx, store, "u1")
	if err != nil || len(got) != 2 {
		t.Fatalf("indexed list: %v %v", got, err)
	}

	// Hide the index behind a plain Store.
	var plain Store = struct{ Store }{store}
	got, err = ListByUser(ctx, plain, "u1")
	if err != nil || len(got) != 2 {
		t.Fatalf("fallback list: %v %v", got, err)
	}
}

func TestPatchApplyAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := Record{ExpiresAt: now}

	if rec.Expired(now) {
		t.Fatal("a record is not expired at its own expiry instant")
	}
	if !rec.Expired(now.Add(time.Nanosecond)) {
		t.Fatal("expected expiry after expiresAt")
	}

	if !(Patch{}).Empty() {
		t.Fatal("zero patch must be empty")
	}
	at := now.Add(time.Minute)
	Patch{LastActivityAt: &at}.Apply(&rec)
	if !rec.LastActivityAt.Equal(at) || !rec.ExpiresAt.Equal(now) {
		t.Fatalf("unexpected patch result %+v", rec)
	}
}

func TestTruncateUserAgent(t *testing.T) {
	if got := TruncateUserAgent("short", 256); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := TruncateUserAgent("abcdef", 3); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	// "é" is two bytes; cutting inside it must back off.
	if got := TruncateUserAgent("aé", 2); got != "a" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}
