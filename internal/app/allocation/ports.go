package allocation

import (
	"context"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The engine reaches its collaborators only through these interfaces.
// Stores return sentinel.ErrNotFound for missing documents and
// sentinel.ErrConflict when a guarded write does not match.

// MemberStore is the member-management side of the engine.
type MemberStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error)
	UpdateGender(ctx context.Context, id primitive.ObjectID, gender string) error
}

// ClubStore resolves clubs.
type ClubStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Club, error)
}

// UnitStore resolves units.
type UnitStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Unit, error)
	ListByClub(ctx context.Context, clubID primitive.ObjectID) ([]models.Unit, error)
}

// AllocationUpdate is the full allocation state written to a membership.
// A nil UnitID clears the assignment.
type AllocationUpdate struct {
	UnitID      *primitive.ObjectID
	Status      string
	AllocatedAt *time.Time
}

// MembershipStore reads memberships and writes their allocation state.
type MembershipStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error)
	ListActiveByMember(ctx context.Context, memberID primitive.ObjectID) ([]models.Membership, error)
	ListActiveByClub(ctx context.Context, clubID primitive.ObjectID) ([]models.Membership, error)
	CountActiveInUnit(ctx context.Context, unitID primitive.ObjectID) (int64, error)
	CountActiveByClub(ctx context.Context, clubID primitive.ObjectID) (map[primitive.ObjectID]int64, error)

	// UpdateAllocation applies upd only if the stored version equals
	// expectedVersion, incrementing the version. It returns the updated
	// membership.
	UpdateAllocation(ctx context.Context, id primitive.ObjectID, expectedVersion int64, upd AllocationUpdate) (models.Membership, error)
}

// RecordQuery narrows a club's allocation records. Empty fields match
// everything; Limit and Offset page the newest-first result.
type RecordQuery struct {
	ClubID    primitive.ObjectID
	Trigger   string
	Outcome   string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// RecordStore is the append-only allocation audit log.
type RecordStore interface {
	Append(ctx context.Context, rec models.AllocationRecord) error
	ListByMembership(ctx context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error)
	LatestByMemberships(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AllocationRecord, error)
	Query(ctx context.Context, q RecordQuery) ([]models.AllocationRecord, error)
}

// TxRunner runs fn so that its writes commit together where the backend
// supports it.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes work on one key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
