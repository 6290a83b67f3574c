package membershipstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	membershipstore "github.com/dalemusser/clubhub/internal/app/store/memberships"
	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	club := fixtures.CreateClub(ctx, "Eagles")
	member := fixtures.CreateMember(ctx, "Ada", time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderFemale)

	m, err := store.Create(ctx, member.ID, club.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsActive {
		t.Error("expected new membership to be active")
	}
	if got.AllocationStatus != models.AllocationUnallocated {
		t.Errorf("AllocationStatus: got %q, want %q", got.AllocationStatus, models.AllocationUnallocated)
	}
	if got.UnitID != nil {
		t.Error("expected no unit on a new membership")
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateAllocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	club := fixtures.CreateClub(ctx, "Eagles")
	unit := fixtures.CreateUnit(ctx, club.ID, "Unit A", 10, 13, models.RestrictAny, nil)
	member := fixtures.CreateMember(ctx, "Ada", time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderFemale)
	m := fixtures.CreateMembership(ctx, member.ID, club.ID, nil)

	at := time.Now().UTC().Truncate(time.Millisecond)
	uid := unit.ID
	got, err := store.UpdateAllocation(ctx, m.ID, 0, allocation.AllocationUpdate{
		UnitID:      &uid,
		Status:      models.AllocationAllocated,
		AllocatedAt: &at,
	})
	if err != nil {
		t.Fatalf("UpdateAllocation failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version: got %d, want 1", got.Version)
	}
	if got.UnitID == nil || *got.UnitID != unit.ID {
		t.Errorf("UnitID: got %v, want %s", got.UnitID, unit.ID.Hex())
	}

	// Stale version.
	_, err = store.UpdateAllocation(ctx, m.ID, 0, allocation.AllocationUpdate{Status: models.AllocationUnallocated})
	if !errors.Is(err, sentinel.ErrConflict) {
		t.Errorf("stale version: expected ErrConflict, got %v", err)
	}

	// Clearing removes the fields.
	got, err = store.UpdateAllocation(ctx, m.ID, 1, allocation.AllocationUpdate{Status: models.AllocationUnallocated})
	if err != nil {
		t.Fatalf("UpdateAllocation (clear) failed: %v", err)
	}
	if got.UnitID != nil || got.AllocatedAt != nil {
		t.Error("expected unit_id and allocated_at to be cleared")
	}
	n, err := db.Collection("memberships").CountDocuments(ctx, bson.M{"_id": m.ID, "unit_id": bson.M{"$exists": true}})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 0 {
		t.Error("expected unit_id to be unset in the document")
	}

	_, err = store.UpdateAllocation(ctx, primitive.NewObjectID(), 0, allocation.AllocationUpdate{})
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Errorf("missing membership: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Counts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	club := fixtures.CreateClub(ctx, "Eagles")
	a := fixtures.CreateUnit(ctx, club.ID, "Unit A", 10, 13, models.RestrictAny, nil)
	b := fixtures.CreateUnit(ctx, club.ID, "Unit B", 13, 16, models.RestrictAny, nil)
	dob := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		member := fixtures.CreateMember(ctx, "A member", dob, models.GenderMale)
		fixtures.CreateMembership(ctx, member.ID, club.ID, &a.ID)
	}
	member := fixtures.CreateMember(ctx, "B member", dob, models.GenderMale)
	inB := fixtures.CreateMembership(ctx, member.ID, club.ID, &b.ID)
	waiting := fixtures.CreateMember(ctx, "Waiting", dob, models.GenderMale)
	fixtures.CreateMembership(ctx, waiting.ID, club.ID, nil)

	if err := store.SetActive(ctx, inB.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	n, err := store.CountActiveInUnit(ctx, a.ID)
	if err != nil {
		t.Fatalf("CountActiveInUnit failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountActiveInUnit(A): got %d, want 2", n)
	}

	counts, err := store.CountActiveByClub(ctx, club.ID)
	if err != nil {
		t.Fatalf("CountActiveByClub failed: %v", err)
	}
	if counts[a.ID] != 2 {
		t.Errorf("counts[A]: got %d, want 2", counts[a.ID])
	}
	if _, ok := counts[b.ID]; ok {
		t.Error("expected inactive membership to be excluded from counts")
	}

	active, err := store.ListActiveByClub(ctx, club.ID)
	if err != nil {
		t.Fatalf("ListActiveByClub failed: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("ListActiveByClub: got %d, want 3", len(active))
	}
}
