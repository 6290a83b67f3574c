package allocation

import (
	"context"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// UnitCapacity is the occupancy snapshot of one unit.
type UnitCapacity struct {
	UnitID               primitive.ObjectID `json:"unit_id"`
	Name                 string             `json:"name"`
	CurrentCount         int                `json:"current_count"`
	Capacity             *int               `json:"capacity,omitempty"`
	HasAvailableCapacity bool               `json:"has_available_capacity"`
}

// CapacityTracker reports unit occupancy. Occupancy is always derived from
// active memberships at read time; there is no stored counter.
type CapacityTracker struct {
	memberships MembershipStore
	units       UnitStore
}

// NewCapacityTracker builds a tracker over the given stores.
func NewCapacityTracker(memberships MembershipStore, units UnitStore) *CapacityTracker {
	return &CapacityTracker{memberships: memberships, units: units}
}

// CurrentMemberCount counts active memberships assigned to unit.
func (c *CapacityTracker) CurrentMemberCount(ctx context.Context, unit models.Unit) (int, error) {
	n, err := c.memberships.CountActiveInUnit(ctx, unit.ID)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// HasAvailableCapacity reports whether unit can take one more active
// membership.
func (c *CapacityTracker) HasAvailableCapacity(ctx context.Context, unit models.Unit) (bool, error) {
	if unit.Capacity == nil {
		return true, nil
	}
	n, err := c.CurrentMemberCount(ctx, unit)
	if err != nil {
		return false, err
	}
	return n < *unit.Capacity, nil
}

// ClubStatus returns the occupancy of every unit in the club.
func (c *CapacityTracker) ClubStatus(ctx context.Context, clubID primitive.ObjectID) ([]UnitCapacity, error) {
	var (
		units  []models.Unit
		counts map[primitive.ObjectID]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = c.units.ListByClub(gctx, clubID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = c.memberships.CountActiveByClub(gctx, clubID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]UnitCapacity, 0, len(units))
	for _, u := range units {
		n := int(counts[u.ID])
		out = append(out, UnitCapacity{
			UnitID:               u.ID,
			Name:                 u.Name,
			CurrentCount:         n,
			Capacity:             u.Capacity,
			HasAvailableCapacity: u.Capacity == nil || n < *u.Capacity,
		})
	}
	return out, nil
}
