// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Allocation status values persisted on a Membership.
const (
	AllocationUnallocated       = "unallocated"
	AllocationAllocated         = "allocated"
	AllocationNeedsReallocation = "needs_reallocation"
	AllocationFailed            = "allocation_failed"
)

// Membership links one Member to one Club and, after allocation, to one Unit.
//
// NOTE:
//   - UnitID is a single optional reference, so a membership can never hold
//     more than one unit assignment.
//   - UnitID and AllocationStatus are written only by the allocation engine.
//   - Version increments on every allocation write and guards concurrent
//     updates (compare-and-set on the stored value).
type Membership struct {
	ID               primitive.ObjectID  `bson:"_id" json:"id"`
	MemberID         primitive.ObjectID  `bson:"member_id" json:"member_id"`
	ClubID           primitive.ObjectID  `bson:"club_id" json:"club_id"`
	UnitID           *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`
	IsActive         bool                `bson:"is_active" json:"is_active"`
	AllocationStatus string              `bson:"allocation_status" json:"allocation_status"`
	AllocatedAt      *time.Time          `bson:"allocated_at,omitempty" json:"allocated_at,omitempty"`
	Version          int64               `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasUnit reports whether the membership currently points at a unit.
func (m Membership) HasUnit() bool {
	return m.UnitID != nil && !m.UnitID.IsZero()
}
