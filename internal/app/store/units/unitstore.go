// internal/app/store/units/unitstore.go
package unitstore

import (
	"context"
	"errors"
	"time"

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

var ErrDuplicateUnitName = errors.New("a unit with this name already exists in the club")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("units")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Unit, error) {
	var u models.Unit
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Unit{}, sentinel.ErrNotFound
		}
		return models.Unit{}, err
	}
	return u, nil
}

// ListByClub returns the club's units ordered by name.
func (s *Store) ListByClub(ctx context.Context, clubID primitive.ObjectID) ([]models.Unit, error) {
	cur, err := s.c.Find(ctx, bson.M{"club_id": clubID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	units := make([]models.Unit, 0)
	if err := cur.All(ctx, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// Create validates and inserts a unit.
func (s *Store) Create(ctx context.Context, u models.Unit) (models.Unit, error) {
	if err := u.Validate(); err != nil {
		return models.Unit{}, err
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Unit{}, ErrDuplicateUnitName
		}
		return models.Unit{}, err
	}
	return u, nil
}
