// internal/domain/models/unit.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender restriction values stored on a Unit.
const (
	RestrictMale   = "male"
	RestrictFemale = "female"
	RestrictAny    = "any"
)

var (
	ErrUnitAgeRange    = errors.New("unit age_min must be less than age_max")
	ErrUnitRestriction = errors.New(`unit gender_restriction must be "male", "female" or "any"`)
	ErrUnitCapacity    = errors.New("unit capacity must not be negative")
)

// Unit is an age and gender scoped sub-group of a Club.
//
// AgeMin is inclusive and AgeMax is exclusive. A nil Capacity means the
// unit accepts any number of active memberships.
type Unit struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	ClubID            primitive.ObjectID `bson:"club_id" json:"club_id"`
	Name              string             `bson:"name" json:"name"`
	AgeMin            int                `bson:"age_min" json:"age_min"`
	AgeMax            int                `bson:"age_max" json:"age_max"`
	GenderRestriction string             `bson:"gender_restriction" json:"gender_restriction"`
	Capacity          *int               `bson:"capacity,omitempty" json:"capacity,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Validate checks the invariants hierarchy management must uphold.
func (u Unit) Validate() error {
	if u.AgeMin >= u.AgeMax {
		return ErrUnitAgeRange
	}
	switch u.GenderRestriction {
	case RestrictMale, RestrictFemale, RestrictAny:
	default:
		return ErrUnitRestriction
	}
	if u.Capacity != nil && *u.Capacity < 0 {
		return ErrUnitCapacity
	}
	return nil
}

// AgeSpan is the width of the unit's age band.
func (u Unit) AgeSpan() int {
	return u.AgeMax - u.AgeMin
}
