package store

import (
	"testing"
	"time"

	"github.com/calebwray/tandem/internal/database"
	"github.com/calebwray/tandem/internal/model"
)

func setupOutboxTestDB(t *testing.T) (*OutboxStore, *model.HouseholdLink) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hs := NewHouseholdStore(db)
	h1, _ := hs.Create("Mom's House")
	h2, _ := hs.Create("Dad's House")
	child, _ := NewFamilyMemberStore(db).Create("Theo")
	link, err := NewLinkStore(db).Create(child.ID, h1.ID, h2.ID)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	return NewOutboxStore(db), link
}

func TestOutboxEnqueue(t *testing.T) {
	os, link := setupOutboxTestDB(t)

	intent, err := os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 15)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if intent.Status != model.SyncPending {
		t.Errorf("status = %q, want pending", intent.Status)
	}
	if intent.IntentKey == "" {
		t.Error("expected non-empty intent key")
	}
	if intent.PointsDelta != 15 {
		t.Errorf("delta = %d, want 15", intent.PointsDelta)
	}
	if intent.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", intent.Attempts)
	}
}

func TestOutboxListPendingOrderAndLimit(t *testing.T) {
	os, link := setupOutboxTestDB(t)

	first, _ := os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 1)
	os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 2)
	os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 3)

	pending, err := os.ListPending(2)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Errorf("first pending = %d, want oldest %d", pending[0].ID, first.ID)
	}
}

func TestOutboxMarkDelivered(t *testing.T) {
	os, link := setupOutboxTestDB(t)

	intent, _ := os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 5)
	if err := os.MarkDelivered(intent.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	got, _ := os.GetByID(intent.ID)
	if got.Status != model.SyncDelivered {
		t.Errorf("status = %q, want delivered", got.Status)
	}
	if got.DeliveredAt == nil {
		t.Error("expected delivered_at set")
	}

	pending, _ := os.ListPending(10)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestOutboxMarkFailedAfterAttempts(t *testing.T) {
	os, link := setupOutboxTestDB(t)

	intent, _ := os.Enqueue(link.ID, link.Household2ID, link.ChildFamilyMemberID, 5)
	if err := os.RecordAttempt(intent.ID, "profile missing"); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := os.MarkFailed(intent.ID, "profile missing"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, _ := os.GetByID(intent.ID)
	if got.Status != model.SyncFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "profile missing" {
		t.Errorf("last_error = %q", got.LastError)
	}

	pending, _ := os.ListPending(10)
	if len(pending) != 0 {
		t.Errorf("failed intents must not be listed as pending, got %d", len(pending))
	}
}
