package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateClub creates an active club.
func (f *Fixtures) CreateClub(ctx context.Context, name string) models.Club {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Club{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "clubs", c)
	return c
}

// CreateUnit creates a unit in clubID. A nil capacity is unlimited.
func (f *Fixtures) CreateUnit(ctx context.Context, clubID primitive.ObjectID, name string, ageMin, ageMax int, restrict string, capacity *int) models.Unit {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.Unit{
		ID:                primitive.NewObjectID(),
		ClubID:            clubID,
		Name:              name,
		AgeMin:            ageMin,
		AgeMax:            ageMax,
		GenderRestriction: restrict,
		Capacity:          capacity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.insert(ctx, "units", u)
	return u
}

// CreateMember creates an active member.
func (f *Fixtures) CreateMember(ctx context.Context, fullName string, dob time.Time, gender string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:          primitive.NewObjectID(),
		FullName:    fullName,
		FullNameCI:  text.Fold(fullName),
		DateOfBirth: dob,
		Gender:      gender,
		Status:      models.MemberActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "members", m)
	return m
}

// CreateMembership creates an active membership. A non-nil unitID makes it
// allocated.
func (f *Fixtures) CreateMembership(ctx context.Context, memberID, clubID primitive.ObjectID, unitID *primitive.ObjectID) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Membership{
		ID:               primitive.NewObjectID(),
		MemberID:         memberID,
		ClubID:           clubID,
		UnitID:           unitID,
		IsActive:         true,
		AllocationStatus: models.AllocationUnallocated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if unitID != nil {
		m.AllocationStatus = models.AllocationAllocated
		m.AllocatedAt = &now
	}
	f.insert(ctx, "memberships", m)
	return m
}

// IntPtr returns a pointer to n, for unit capacities.
func IntPtr(n int) *int { return &n }
