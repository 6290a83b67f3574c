package allocationstore_test

import (
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	allocationstore "github.com/dalemusser/clubhub/internal/app/store/allocations"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := allocationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	club := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)

	recs := []models.AllocationRecord{
		{MembershipID: a, ClubID: club, Trigger: models.TriggerAuto, Outcome: "allocated", Timestamp: base},
		{MembershipID: a, ClubID: club, Trigger: models.TriggerRemove, Outcome: "removed", Timestamp: base.Add(time.Minute)},
		{MembershipID: b, ClubID: club, Trigger: models.TriggerAuto, Outcome: "no_capacity", Timestamp: base.Add(2 * time.Minute)},
	}
	for _, r := range recs {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	hist, err := store.ListByMembership(ctx, a)
	if err != nil {
		t.Fatalf("ListByMembership failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("ListByMembership: got %d records, want 2", len(hist))
	}
	if hist[0].Outcome != "removed" {
		t.Errorf("newest first: got %q, want %q", hist[0].Outcome, "removed")
	}

	latest, err := store.LatestByMemberships(ctx, []primitive.ObjectID{a, b})
	if err != nil {
		t.Fatalf("LatestByMemberships failed: %v", err)
	}
	if latest[a].Outcome != "removed" {
		t.Errorf("latest[a]: got %q, want %q", latest[a].Outcome, "removed")
	}
	if latest[b].Outcome != "no_capacity" {
		t.Errorf("latest[b]: got %q, want %q", latest[b].Outcome, "no_capacity")
	}

	auto, err := store.Query(ctx, allocation.RecordQuery{ClubID: club, Trigger: models.TriggerAuto})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(auto) != 2 {
		t.Fatalf("Query by trigger: got %d, want 2", len(auto))
	}
	if auto[0].MembershipID != b {
		t.Errorf("Query order: got %s first, want %s", auto[0].MembershipID.Hex(), b.Hex())
	}

	page, err := store.Query(ctx, allocation.RecordQuery{ClubID: club, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query page failed: %v", err)
	}
	if len(page) != 1 || page[0].Outcome != "removed" {
		t.Errorf("Query page: got %+v, want the removed record", page)
	}

	since := base.Add(30 * time.Second)
	recent, err := store.Query(ctx, allocation.RecordQuery{ClubID: club, StartTime: &since, Outcome: "allocated"})
	if err != nil {
		t.Fatalf("Query range failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("Query range: got %d, want 0", len(recent))
	}

	other, err := store.Query(ctx, allocation.RecordQuery{ClubID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Query other club failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Query other club: got %d, want 0", len(other))
	}
}

func TestStore_LatestByMemberships_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := allocationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.LatestByMemberships(ctx, nil)
	if err != nil {
		t.Fatalf("LatestByMemberships failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %d entries", len(got))
	}
}
