// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender values stored on a Member.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Member status values.
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// ValidGender reports whether g is one of the stored gender values.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Member is a person who can hold club memberships.
//
// NOTE:
//   - Members are owned by member management. The allocation engine only
//     reads them, except for gender updates routed through the member store.
//   - DateOfBirth is stored as a UTC midnight; only the calendar date matters.
type Member struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	FullName    string             `bson:"full_name" json:"full_name"`
	FullNameCI  string             `bson:"full_name_ci" json:"full_name_ci"`
	DateOfBirth time.Time          `bson:"date_of_birth" json:"date_of_birth"`
	Gender      string             `bson:"gender" json:"gender"` // male | female | other
	Status      string             `bson:"status" json:"status"` // active | inactive

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
