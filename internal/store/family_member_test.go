package store

import (
	"testing"

	"github.com/calebwray/tandem/internal/database"
)

func setupFamilyMemberTestDB(t *testing.T) (*FamilyMemberStore, *HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFamilyMemberStore(db), NewHouseholdStore(db)
}

func TestFamilyMemberCreate(t *testing.T) {
	ms, _ := setupFamilyMemberTestDB(t)

	m, err := ms.Create("Theo")
	if err != nil {
		t.Fatalf("create family member: %v", err)
	}
	if m.Name != "Theo" {
		t.Errorf("name = %q, want %q", m.Name, "Theo")
	}
	if m.HasPIN {
		t.Error("new member should not have a PIN")
	}
}

func TestFamilyMemberSetPIN(t *testing.T) {
	ms, _ := setupFamilyMemberTestDB(t)

	m, _ := ms.Create("Dana")
	if err := ms.SetPIN(m.ID, "fakehash"); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	hash, err := ms.GetPINHash(m.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "fakehash" {
		t.Errorf("hash = %q, want %q", hash, "fakehash")
	}

	got, _ := ms.GetByID(m.ID)
	if !got.HasPIN {
		t.Error("HasPIN should report true after SetPIN")
	}
}

func TestFamilyMemberHouseholdMembership(t *testing.T) {
	ms, hs := setupFamilyMemberTestDB(t)

	m, _ := ms.Create("Theo")
	h1, _ := hs.Create("Mom's House")
	h2, _ := hs.Create("Dad's House")

	if err := ms.AddHousehold(m.ID, h1.ID); err != nil {
		t.Fatalf("add household: %v", err)
	}
	// Idempotent.
	if err := ms.AddHousehold(m.ID, h1.ID); err != nil {
		t.Fatalf("re-add household: %v", err)
	}
	if err := ms.AddHousehold(m.ID, h2.ID); err != nil {
		t.Fatalf("add second household: %v", err)
	}

	ids, err := ms.LinkedHouseholds(m.ID)
	if err != nil {
		t.Fatalf("linked households: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("households = %v, want 2", ids)
	}

	if err := ms.RemoveHousehold(m.ID, h2.ID); err != nil {
		t.Fatalf("remove household: %v", err)
	}
	ids, _ = ms.LinkedHouseholds(m.ID)
	if len(ids) != 1 || ids[0] != h1.ID {
		t.Errorf("households = %v, want [%d]", ids, h1.ID)
	}
}
