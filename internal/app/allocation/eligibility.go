package allocation

import (
	"fmt"

	"github.com/dalemusser/clubhub/internal/app/system/programyear"
	"github.com/dalemusser/clubhub/internal/domain/models"
)

// DefaultMinAge is the youngest program-year age admitted to a club.
const DefaultMinAge = 10

// Eligibility decides whether a member may hold a club membership at all.
type Eligibility struct {
	MinAge int
}

// IsEligible reports whether member is at least MinAge on June 1 of year.
// The reason is advisory text for user-facing messages and is empty when
// the member is eligible.
func (e Eligibility) IsEligible(member models.Member, year int) (bool, string) {
	min := e.MinAge
	if min <= 0 {
		min = DefaultMinAge
	}
	age := programyear.AgeOn(member.DateOfBirth, year)
	if age < 0 {
		return false, fmt.Sprintf("member is not yet born as of the %d reference date", year)
	}
	if age < min {
		return false, fmt.Sprintf("member is younger than the minimum age of %d as of the reference date", min)
	}
	return true, ""
}
