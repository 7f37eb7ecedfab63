package ledgerstore

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadelivery/internal/testutil"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := Entry{
		RequestID:   "req-1",
		Method:      "POST",
		Path:        "/api/1.0/organise/runfolder/x",
		StatusCode:  404,
		ErrorClass:  "not_found",
		StartedAt:   now,
		CompletedAt: now,
	}
	if err := store.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetByRequestID() error = %v", err)
	}
	if got.Path != entry.Path {
		t.Errorf("Path = %q, want %q", got.Path, entry.Path)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, now.Add(time.Hour))
	}

	if _, err := store.GetByRequestID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetByRequestID(missing) error = %v, want %v", err, ErrNotFound)
	}
}

func TestStore_RecentErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	entries := []Entry{
		{RequestID: "ok", StatusCode: 200, StartedAt: base},
		{RequestID: "nf", StatusCode: 404, ErrorClass: "not_found", StartedAt: base.Add(time.Minute)},
		{RequestID: "cf", StatusCode: 403, ErrorClass: "conflict", StartedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Create(ctx, e); err != nil {
			t.Fatalf("Create(%s) error = %v", e.RequestID, err)
		}
	}

	got, err := store.RecentErrors(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentErrors() error = %v", err)
	}
	if len(got) != 2 || got[0].RequestID != "cf" || got[1].RequestID != "nf" {
		t.Errorf("RecentErrors() = %+v, want [cf nf]", got)
	}

	got, err = store.RecentErrors(ctx, "not_found", 10)
	if err != nil {
		t.Fatalf("RecentErrors(not_found) error = %v", err)
	}
	if len(got) != 1 || got[0].RequestID != "nf" {
		t.Errorf("RecentErrors(not_found) = %+v, want [nf]", got)
	}
}
