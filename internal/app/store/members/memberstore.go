// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

var (
	ErrBadGender = errors.New(`gender must be "male", "female" or "other"`)
	ErrNoName    = errors.New("full name is required")
)

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, sentinel.ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Create inserts a member. Date of birth is normalized to midnight UTC.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	m.FullName = strings.TrimSpace(m.FullName)
	if m.FullName == "" {
		return models.Member{}, ErrNoName
	}
	if !models.ValidGender(m.Gender) {
		return models.Member{}, ErrBadGender
	}
	now := time.Now().UTC()
	dob := m.DateOfBirth.UTC()
	m.ID = primitive.NewObjectID()
	m.FullNameCI = text.Fold(m.FullName)
	m.DateOfBirth = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	if m.Status == "" {
		m.Status = models.MemberActive
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// UpdateGender sets the member's gender.
func (s *Store) UpdateGender(ctx context.Context, id primitive.ObjectID, gender string) error {
	if !models.ValidGender(gender) {
		return ErrBadGender
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"gender":     gender,
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
