package allocation

import (
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcomes reported in Result.Outcome and AllocationRecord.Outcome.
const (
	OutcomeAllocated         = "allocated"
	OutcomeReallocated       = "reallocated"
	OutcomeUnchanged         = "unchanged"
	OutcomeRemoved           = "removed"
	OutcomeIneligible        = "ineligible"
	OutcomeNoCompatibleUnit  = "no_compatible_unit"
	OutcomeNoCapacity        = "no_capacity"
	OutcomeUnitAtCapacity    = "unit_at_capacity"
	OutcomeNeedsReallocation = "needs_reallocation"
	OutcomeCompatible        = "compatible"
	OutcomeConflict          = "conflict"
)

// Standard reasons.
const (
	ReasonAuto             = "auto-allocation"
	ReasonGenderChange     = "auto-allocation after gender change"
	ReasonManual           = "manual allocation"
	ReasonReallocate       = "reallocation"
	ReasonRemoved          = "removed"
	ReasonNoCapacity       = "no compatible unit with available capacity"
	ReasonNoCompatibleUnit = "no unit in the club matches the member's age and gender"
)

// Result is the outcome of one allocation operation. Business outcomes such
// as ineligibility or a full unit are reported here with Success=false;
// they are not errors.
type Result struct {
	MembershipID   primitive.ObjectID       `json:"membership_id"`
	Success        bool                     `json:"success"`
	Outcome        string                   `json:"outcome"`
	Status         string                   `json:"status"`
	UnitID         *primitive.ObjectID      `json:"unit_id,omitempty"`
	PreviousUnitID *primitive.ObjectID      `json:"previous_unit_id,omitempty"`
	Message        string                   `json:"message"`
	Warnings       []string                 `json:"warnings,omitempty"`
	Record         *models.AllocationRecord `json:"record,omitempty"`
}

// UnitRef is a short reference to a unit in reports.
type UnitRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// BirthdayReport is the outcome of a birthday re-evaluation. It never moves
// the member; a separate Reallocate or AutoAllocate call does that.
type BirthdayReport struct {
	MembershipID          primitive.ObjectID       `json:"membership_id"`
	ReferenceYear         int                      `json:"reference_year"`
	Age                   int                      `json:"age"`
	CurrentUnitID         *primitive.ObjectID      `json:"current_unit_id,omitempty"`
	CurrentUnitCompatible bool                     `json:"current_unit_compatible"`
	NeedsReallocation     bool                     `json:"needs_reallocation"`
	CompatibleUnits       []UnitRef                `json:"compatible_units"`
	Status                string                   `json:"status"`
	Record                *models.AllocationRecord `json:"record,omitempty"`
}

// GenderChangeReport lists the re-allocations triggered by a gender change.
type GenderChangeReport struct {
	MemberID      primitive.ObjectID `json:"member_id"`
	Gender        string             `json:"gender"`
	CorrelationID string             `json:"correlation_id"`
	Checked       int                `json:"checked"`
	Results       []Result           `json:"results"`
}

// PendingMembership is a membership awaiting administrative follow-up.
type PendingMembership struct {
	Membership models.Membership        `json:"membership"`
	Status     string                   `json:"status"`
	LastRecord *models.AllocationRecord `json:"last_record,omitempty"`
}

// statusOf returns the effective allocation status, treating documents
// written before allocation existed as allocated or unallocated by their
// unit pointer.
func statusOf(m models.Membership) string {
	if m.AllocationStatus != "" {
		return m.AllocationStatus
	}
	if m.HasUnit() {
		return models.AllocationAllocated
	}
	return models.AllocationUnallocated
}

func sameUnit(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
