package sync

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/calebwray/tandem/internal/database"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/websocket"
)

type recordedBroadcast struct {
	householdID int64
	msg         websocket.Message
}

type stubNotifier struct {
	broadcasts []recordedBroadcast
}

func (n *stubNotifier) Broadcast(householdID int64, msg websocket.Message) {
	n.broadcasts = append(n.broadcasts, recordedBroadcast{householdID, msg})
}

type syncFixture struct {
	synchronizer *Synchronizer
	worker       *Worker
	households   *store.HouseholdStore
	members      *store.FamilyMemberStore
	links        *store.LinkStore
	outbox       *store.OutboxStore
	notifier     *stubNotifier

	mom, dad       *model.Household
	child          *model.FamilyMember
	momKid, dadKid *model.MemberProfile
	link           *model.HouseholdLink
}

func setupSync(t *testing.T) *syncFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	f := &syncFixture{
		households: store.NewHouseholdStore(db),
		members:    store.NewFamilyMemberStore(db),
		links:      store.NewLinkStore(db),
		outbox:     store.NewOutboxStore(db),
		notifier:   &stubNotifier{},
	}
	f.synchronizer = NewSynchronizer(f.links, f.outbox, logger)
	f.worker = NewWorker(f.outbox, f.households, f.notifier, time.Second, logger)

	f.mom, _ = f.households.Create("Mom's House")
	f.dad, _ = f.households.Create("Dad's House")
	f.child, _ = f.members.Create("Theo")
	f.momKid, _ = f.households.CreateProfile(f.mom.ID, f.child.ID, "Theo", model.RoleChild)
	f.dadKid, _ = f.households.CreateProfile(f.dad.ID, f.child.ID, "Theo", model.RoleChild)

	f.link, _ = f.links.Create(f.child.ID, f.mom.ID, f.dad.ID)
	return f
}

func (f *syncFixture) sharePoints(t *testing.T) {
	t.Helper()
	f.link.Settings.Points = model.SettingShared
	if err := f.links.Update(f.link); err != nil {
		t.Fatalf("share points: %v", err)
	}
}

func TestEnqueueSharedPoints(t *testing.T) {
	f := setupSync(t)
	f.sharePoints(t)

	if err := f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 15); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, _ := f.outbox.ListPending(10)
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].TargetHouseholdID != f.dad.ID {
		t.Errorf("target = %d, want %d", pending[0].TargetHouseholdID, f.dad.ID)
	}
}

func TestEnqueueSeparatePointsSkipped(t *testing.T) {
	f := setupSync(t)

	if err := f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 15); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pending, _ := f.outbox.ListPending(10)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 with points separate", len(pending))
	}
}

func TestEnqueueZeroDeltaSkipped(t *testing.T) {
	f := setupSync(t)
	f.sharePoints(t)

	if err := f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pending, _ := f.outbox.ListPending(10)
	if len(pending) != 0 {
		t.Errorf("pending = %d, zero deltas are not mirrored", len(pending))
	}
}

func TestDrainAppliesDeltaToCounterpart(t *testing.T) {
	f := setupSync(t)
	f.sharePoints(t)

	if err := f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 15); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.worker.DrainOnce(context.Background())

	p, _ := f.households.GetProfile(f.dadKid.ID)
	if p.PointsTotal != 15 {
		t.Errorf("counterpart points = %d, want 15", p.PointsTotal)
	}
	// The origin profile is untouched by delivery.
	p, _ = f.households.GetProfile(f.momKid.ID)
	if p.PointsTotal != 0 {
		t.Errorf("origin points = %d, delivery must not touch the origin", p.PointsTotal)
	}

	pending, _ := f.outbox.ListPending(10)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 after drain", len(pending))
	}

	// Delivery notifies the target household only.
	for _, b := range f.notifier.broadcasts {
		if b.householdID != f.dad.ID {
			t.Errorf("broadcast to household %d, want only %d", b.householdID, f.dad.ID)
		}
	}
	if len(f.notifier.broadcasts) == 0 {
		t.Error("expected delivery broadcasts")
	}
}

func TestDrainRetriesUntilAttemptBudget(t *testing.T) {
	f := setupSync(t)
	f.sharePoints(t)

	if err := f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 15); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Remove the counterpart profile so delivery keeps failing.
	if err := f.households.DeleteProfile(f.dadKid.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	for i := 0; i < maxAttempts; i++ {
		f.worker.DrainOnce(context.Background())
	}

	pending, _ := f.outbox.ListPending(10)
	if len(pending) != 0 {
		t.Fatalf("pending = %d, intent should be failed after %d attempts", len(pending), maxAttempts)
	}

	// The row survives with the error recorded.
	row, _ := f.outbox.GetByID(1)
	if row.Status != model.SyncFailed {
		t.Errorf("status = %q, want failed", row.Status)
	}
	if row.Attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", row.Attempts, maxAttempts)
	}
	if row.LastError == "" {
		t.Error("expected last_error to be recorded")
	}
}

func TestDrainFailureDoesNotBlockOthers(t *testing.T) {
	f := setupSync(t)
	f.sharePoints(t)

	// Second child with a healthy profile on both sides.
	other, _ := f.members.Create("Ivy")
	f.households.CreateProfile(f.mom.ID, other.ID, "Ivy", model.RoleChild)
	otherDad, _ := f.households.CreateProfile(f.dad.ID, other.ID, "Ivy", model.RoleChild)
	otherLink, _ := f.links.Create(other.ID, f.mom.ID, f.dad.ID)
	otherLink.Settings.Points = model.SettingShared
	if err := f.links.Update(otherLink); err != nil {
		t.Fatalf("share points: %v", err)
	}

	// First intent will fail: no counterpart profile for Theo.
	if err := f.households.DeleteProfile(f.dadKid.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	f.synchronizer.Enqueue(f.child.ID, f.mom.ID, 10)
	f.synchronizer.Enqueue(other.ID, f.mom.ID, 5)

	f.worker.DrainOnce(context.Background())

	p, _ := f.households.GetProfile(otherDad.ID)
	if p.PointsTotal != 5 {
		t.Errorf("healthy delivery points = %d, want 5 (one bad intent must not block the batch)", p.PointsTotal)
	}
}
