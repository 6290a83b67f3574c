// internal/app/store/allocations/allocationstore.go
package allocationstore

import (
	"context"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the append-only allocation record log. It has no update or
// delete methods.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("allocation_records")}
}

// Append inserts rec, assigning an id and timestamp when missing.
func (s *Store) Append(ctx context.Context, rec models.AllocationRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

// ListByMembership returns a membership's records, newest first.
func (s *Store) ListByMembership(ctx context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error) {
	cur, err := s.c.Find(ctx, bson.M{"membership_id": membershipID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	recs := make([]models.AllocationRecord, 0)
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// LatestByMemberships returns the newest record for each of the given
// memberships in one aggregation.
func (s *Store) LatestByMemberships(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AllocationRecord, error) {
	result := make(map[primitive.ObjectID]models.AllocationRecord)
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"membership_id": bson.M{"$in": ids}}},
		{"$sort": newestFirst},
		{"$group": bson.M{"_id": "$membership_id", "rec": bson.M{"$first": "$$ROOT"}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID  primitive.ObjectID      `bson:"_id"`
			Rec models.AllocationRecord `bson:"rec"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.Rec
	}
	return result, cur.Err()
}

// Query returns a club's records matching filter, newest first. A zero
// Limit returns at most allocation.DefaultRecordLimit records.
func (s *Store) Query(ctx context.Context, filter allocation.RecordQuery) ([]models.AllocationRecord, error) {
	query := bson.M{"club_id": filter.ClubID}
	if filter.Trigger != "" {
		query["trigger"] = filter.Trigger
	}
	if filter.Outcome != "" {
		query["outcome"] = filter.Outcome
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = allocation.DefaultRecordLimit
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	recs := make([]models.AllocationRecord, 0)
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

var _ allocation.RecordStore = (*Store)(nil)
