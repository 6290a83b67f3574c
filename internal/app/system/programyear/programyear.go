// Package programyear computes ages against the club program-year cutoff.
//
// Clubs place members by their age on June 1 of the program year, not by
// their age on the day a request is made. Every age used for eligibility or
// unit placement must come from AgeOn so the cutoff is applied the same way
// everywhere.
package programyear

import "time"

// Cutoff month and day of the program year.
const (
	CutoffMonth = time.June
	CutoffDay   = 1
)

// ReferenceDate returns June 1 of year at midnight UTC.
func ReferenceDate(year int) time.Time {
	return time.Date(year, CutoffMonth, CutoffDay, 0, 0, 0, 0, time.UTC)
}

// AgeOn returns the whole years elapsed between dob and June 1 of year.
// A birth date after the reference date yields a negative age; callers
// treat that as "not yet eligible".
func AgeOn(dob time.Time, year int) int {
	age := year - dob.Year()
	m, d := dob.Month(), dob.Day()
	if m > CutoffMonth || (m == CutoffMonth && d > CutoffDay) {
		age--
	}
	return age
}

// Current returns the program year containing now. It is simply the calendar
// year; the cutoff only affects how ages are computed within it.
func Current(now time.Time) int {
	return now.UTC().Year()
}

// YearOf returns the reference year to use for ref, falling back to now when
// ref is the zero time.
func YearOf(ref, now time.Time) int {
	if ref.IsZero() {
		return Current(now)
	}
	return ref.UTC().Year()
}
