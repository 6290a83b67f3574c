// internal/domain/models/allocationrecord.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Allocation triggers.
const (
	TriggerAuto          = "auto"
	TriggerManual        = "manual"
	TriggerReallocate    = "reallocate"
	TriggerRemove        = "remove"
	TriggerBirthdayCheck = "birthday_check"
	TriggerGenderChange  = "gender_change"
)

// AllocationRecord is an immutable audit entry for one allocation decision.
// A nil NewUnitID means the member was removed from a unit or could not be
// allocated.
type AllocationRecord struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MembershipID   primitive.ObjectID  `bson:"membership_id" json:"membership_id"`
	MemberID       primitive.ObjectID  `bson:"member_id" json:"member_id"`
	ClubID         primitive.ObjectID  `bson:"club_id" json:"club_id"`
	PreviousUnitID *primitive.ObjectID `bson:"previous_unit_id,omitempty" json:"previous_unit_id,omitempty"`
	NewUnitID      *primitive.ObjectID `bson:"new_unit_id,omitempty" json:"new_unit_id,omitempty"`
	Trigger        string              `bson:"trigger" json:"trigger"`
	Outcome        string              `bson:"outcome" json:"outcome"`
	Reason         string              `bson:"reason" json:"reason"`
	CorrelationID  string              `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	Timestamp      time.Time           `bson:"timestamp" json:"timestamp"`
}
