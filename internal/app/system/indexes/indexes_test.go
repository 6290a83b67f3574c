package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/indexes"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(ctx context.Context, t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"members":            {"idx_members_status_fullnameci_id"},
		"clubs":              {"uniq_clubs_nameci"},
		"units":              {"uniq_units_club_name"},
		"memberships":        {"uniq_memberships_member_club", "idx_memberships_unit_active", "idx_memberships_club_active_status"},
		"allocation_records": {"idx_allocrec_membership_ts", "idx_allocrec_club_ts", "idx_allocrec_correlation"},
	}
	for coll, want := range expected {
		names := indexNames(ctx, t, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q to exist on %s collection", name, coll)
			}
		}
	}
}

func TestEnsureAll_RecreatesRenamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys as idx_members_status_fullnameci_id under another name.
	_, err := db.Collection("members").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOne failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	if !indexNames(ctx, t, db, "members")["idx_members_status_fullnameci_id"] {
		t.Error("expected index to be renamed")
	}
}

func TestEnsureAll_OneMembershipPerClub(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	member, club := primitive.NewObjectID(), primitive.NewObjectID()
	_, err := db.Collection("memberships").InsertOne(ctx, bson.M{"member_id": member, "club_id": club})
	if err != nil {
		t.Fatalf("Insert membership failed: %v", err)
	}
	_, err = db.Collection("memberships").InsertOne(ctx, bson.M{"member_id": member, "club_id": club})
	if err == nil {
		t.Error("expected duplicate key error for unique index on memberships(member_id, club_id)")
	}
}
