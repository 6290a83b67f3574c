package allocation

import (
	"errors"
	"fmt"

	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
)

// Input and reference errors. These are client-correctable and are never
// retried inside the engine.
var (
	ErrMembershipNotFound = fmt.Errorf("membership %w", sentinel.ErrNotFound)
	ErrMemberNotFound     = fmt.Errorf("member %w", sentinel.ErrNotFound)
	ErrUnitNotFound       = fmt.Errorf("unit %w", sentinel.ErrNotFound)
	ErrClubNotFound       = fmt.Errorf("club %w", sentinel.ErrNotFound)

	ErrWrongClub          = errors.New("unit belongs to a different club than the membership")
	ErrMembershipInactive = errors.New("membership is not active")
	ErrInvalidGender      = errors.New(`gender must be "male", "female" or "other"`)
	ErrInvalidYear        = errors.New("reference year is out of range")
	ErrInvalidPage        = errors.New("limit and offset must not be negative")
)

// ErrConflict is returned when another request changed the membership
// between read and commit. The caller may retry the operation once.
var ErrConflict = fmt.Errorf("allocation %w: membership was modified concurrently", sentinel.ErrConflict)

// IsValidation reports whether err is an input/reference error.
func IsValidation(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, ErrWrongClub) ||
		errors.Is(err, ErrMembershipInactive) ||
		errors.Is(err, ErrInvalidGender) ||
		errors.Is(err, ErrInvalidYear) ||
		errors.Is(err, ErrInvalidPage)
}

// notFound maps a store not-found onto the engine error for the entity.
func notFound(err, typed error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return typed
	}
	return err
}
