// internal/app/store/clubs/clubstore.go
package clubstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateClubName = errors.New("a club with this name already exists")
	ErrNoName            = errors.New("club name is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("clubs")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Club, error) {
	var c models.Club
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Club{}, sentinel.ErrNotFound
		}
		return models.Club{}, err
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, c models.Club) (models.Club, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Club{}, ErrNoName
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	if c.Status == "" {
		c.Status = "active"
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Club{}, ErrDuplicateClubName
		}
		return models.Club{}, err
	}
	return c, nil
}

// ListActiveIDs returns the ids of active clubs in id order.
func (s *Store) ListActiveIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"status": "active"}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
