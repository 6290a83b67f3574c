package allocation

import (
	"sort"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/programyear"
	"github.com/dalemusser/clubhub/internal/domain/models"
)

// Matcher finds the units whose age band and gender restriction admit a
// member.
type Matcher struct {
	// Now supplies the current time when no reference date is given.
	Now func() time.Time
}

// CompatibleUnits returns the units admitting member, best fit first.
//
// Age is taken on June 1 of ref's year, or of the current year when ref is
// the zero time. Overlapping bands are allowed; the narrowest band wins,
// then the lower age_min, then the unit id. An empty result is a normal
// outcome.
func (m Matcher) CompatibleUnits(member models.Member, units []models.Unit, ref time.Time) []models.Unit {
	return m.compatibleForYear(member, units, programyear.YearOf(ref, m.now()))
}

func (m Matcher) compatibleForYear(member models.Member, units []models.Unit, year int) []models.Unit {
	age := programyear.AgeOn(member.DateOfBirth, year)

	out := make([]models.Unit, 0, len(units))
	for _, u := range units {
		if admits(u, age, member.Gender) {
			out = append(out, u)
		}
	}
	sortBestFit(out)
	return out
}

// IsCompatible reports whether u admits member for the given program year.
func (m Matcher) IsCompatible(u models.Unit, member models.Member, year int) bool {
	return admits(u, programyear.AgeOn(member.DateOfBirth, year), member.Gender)
}

func (m Matcher) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now()
}

func admits(u models.Unit, age int, gender string) bool {
	if age < u.AgeMin || age >= u.AgeMax {
		return false
	}
	return u.GenderRestriction == models.RestrictAny || u.GenderRestriction == gender
}

func sortBestFit(units []models.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.AgeSpan() != b.AgeSpan() {
			return a.AgeSpan() < b.AgeSpan()
		}
		if a.AgeMin != b.AgeMin {
			return a.AgeMin < b.AgeMin
		}
		return a.ID.Hex() < b.ID.Hex()
	})
}
