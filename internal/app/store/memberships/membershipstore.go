// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

var ErrDuplicateMembership = errors.New("member already belongs to this club")

// Create inserts an active, unallocated membership for (memberID, clubID).
func (s *Store) Create(ctx context.Context, memberID, clubID primitive.ObjectID) (models.Membership, error) {
	now := time.Now().UTC()
	m := models.Membership{
		ID:               primitive.NewObjectID(),
		MemberID:         memberID,
		ClubID:           clubID,
		IsActive:         true,
		AllocationStatus: models.AllocationUnallocated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// SetActive flips the active flag. Deactivating a membership removes it
// from unit occupancy without touching its unit pointer.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, sentinel.ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

func (s *Store) ListActiveByMember(ctx context.Context, memberID primitive.ObjectID) ([]models.Membership, error) {
	return s.list(ctx, bson.M{"member_id": memberID, "is_active": true})
}

func (s *Store) ListActiveByClub(ctx context.Context, clubID primitive.ObjectID) ([]models.Membership, error) {
	return s.list(ctx, bson.M{"club_id": clubID, "is_active": true})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	memberships := make([]models.Membership, 0)
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountActiveInUnit returns the current occupancy of a unit.
func (s *Store) CountActiveInUnit(ctx context.Context, unitID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"unit_id": unitID, "is_active": true})
}

// CountActiveByClub returns the occupancy of every occupied unit in a club
// in one aggregation. Empty units are absent from the map.
func (s *Store) CountActiveByClub(ctx context.Context, clubID primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	result := make(map[primitive.ObjectID]int64)

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"club_id": clubID, "is_active": true, "unit_id": bson.M{"$type": "objectId"}}},
		{"$group": bson.M{"_id": "$unit_id", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.N
	}
	return result, cur.Err()
}

// UpdateAllocation writes the allocation state if the stored version still
// equals expectedVersion, and bumps the version. A missing membership is
// ErrNotFound; a version mismatch is ErrConflict.
func (s *Store) UpdateAllocation(ctx context.Context, id primitive.ObjectID, expectedVersion int64, upd allocation.AllocationUpdate) (models.Membership, error) {
	set := bson.M{
		"allocation_status": upd.Status,
		"updated_at":        time.Now().UTC(),
	}
	unset := bson.M{}
	if upd.UnitID != nil {
		set["unit_id"] = *upd.UnitID
	} else {
		unset["unit_id"] = ""
	}
	if upd.AllocatedAt != nil {
		set["allocated_at"] = *upd.AllocatedAt
	} else {
		unset["allocated_at"] = ""
	}

	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var m models.Membership
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Membership{}, err
	}

	// Tell a stale version apart from a missing document.
	if n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id}); cerr != nil {
		return models.Membership{}, cerr
	} else if n == 0 {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return models.Membership{}, sentinel.ErrConflict
}

var _ allocation.MembershipStore = (*Store)(nil)
