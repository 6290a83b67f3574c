package allocation

import (
	"context"
	"fmt"

	"github.com/dalemusser/clubhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AutoAllocate places the membership in the best-fitting compatible unit
// that has room.
//
// An ineligible member, a club with no matching unit or a club whose
// matching units are all full are reported through Result with
// Success=false and are recorded in the trail. A failed attempt never
// takes a member out of the unit they already hold.
func (s *Service) AutoAllocate(ctx context.Context, membershipID primitive.ObjectID) (Result, error) {
	ctx, end := s.begin(ctx, "auto_allocate", idAttr("membership.id", membershipID))
	res, err := s.autoAllocate(ctx, membershipID, models.TriggerAuto, ReasonAuto, "")
	end(res.Outcome, err)
	return res, err
}

func (s *Service) autoAllocate(ctx context.Context, membershipID primitive.ObjectID, trigger, reason, corr string) (Result, error) {
	m, err := s.loadActive(ctx, membershipID)
	if err != nil {
		return Result{}, err
	}
	member, err := s.loadMember(ctx, m.MemberID)
	if err != nil {
		return Result{}, err
	}
	year := s.currentYear()

	if ok, why := s.eligibility.IsEligible(member, year); !ok {
		status := models.AllocationUnallocated
		if m.HasUnit() {
			status = statusOf(m)
		}
		return s.apply(ctx, m, change{
			trigger: trigger,
			outcome: OutcomeIneligible,
			reason:  why,
			unitID:  m.UnitID,
			status:  status,
			corr:    corr,
		})
	}

	units, err := s.units.ListByClub(ctx, m.ClubID)
	if err != nil {
		return Result{}, fmt.Errorf("list units: %w", err)
	}
	candidates := s.matcher.compatibleForYear(member, units, year)
	if len(candidates) == 0 {
		return s.apply(ctx, m, change{
			trigger: trigger,
			outcome: OutcomeNoCompatibleUnit,
			reason:  ReasonNoCompatibleUnit,
			unitID:  m.UnitID,
			status:  models.AllocationFailed,
			corr:    corr,
		})
	}

	// A member already in a compatible unit stays there.
	if m.HasUnit() {
		for _, u := range candidates {
			if u.ID != *m.UnitID {
				continue
			}
			if statusOf(m) == models.AllocationAllocated {
				return Result{
					MembershipID: m.ID,
					Success:      true,
					Outcome:      OutcomeUnchanged,
					Status:       models.AllocationAllocated,
					UnitID:       m.UnitID,
					Message:      "member is already in a compatible unit",
				}, nil
			}
			return s.apply(ctx, m, change{
				trigger: trigger,
				outcome: OutcomeUnchanged,
				reason:  reason,
				unitID:  m.UnitID,
				status:  models.AllocationAllocated,
				corr:    corr,
				success: true,
			})
		}
	}

	outcome := OutcomeAllocated
	if m.HasUnit() {
		outcome = OutcomeReallocated
	}
	for _, u := range candidates {
		id := u.ID
		res, placed, err := s.placeLocked(ctx, m, u, change{
			trigger: trigger,
			outcome: outcome,
			reason:  reason,
			unitID:  &id,
			status:  models.AllocationAllocated,
			corr:    corr,
			success: true,
		})
		if err != nil {
			return Result{}, err
		}
		if placed {
			return res, nil
		}
		s.log.Debug("unit full, trying next candidate",
			zap.String("membership_id", m.ID.Hex()),
			zap.String("unit_id", u.ID.Hex()))
	}

	return s.apply(ctx, m, change{
		trigger: trigger,
		outcome: OutcomeNoCapacity,
		reason:  ReasonNoCapacity,
		unitID:  m.UnitID,
		status:  models.AllocationFailed,
		corr:    corr,
	})
}

// AllocateToSpecificUnit assigns the membership to unitID, bypassing the
// matcher's ranking. The unit must belong to the membership's club and
// have room; age and gender fit are advisory and reported as warnings.
func (s *Service) AllocateToSpecificUnit(ctx context.Context, membershipID, unitID primitive.ObjectID, reason string) (Result, error) {
	ctx, end := s.begin(ctx, "allocate_to_unit",
		idAttr("membership.id", membershipID), idAttr("unit.id", unitID))
	res, err := s.assign(ctx, membershipID, unitID, reason, models.TriggerManual, ReasonManual)
	end(res.Outcome, err)
	return res, err
}

// Reallocate moves the membership to newUnitID under the same rules as
// AllocateToSpecificUnit. The previous unit is kept in the audit record and
// its slot is freed by the move.
func (s *Service) Reallocate(ctx context.Context, membershipID, newUnitID primitive.ObjectID, reason string) (Result, error) {
	ctx, end := s.begin(ctx, "reallocate",
		idAttr("membership.id", membershipID), idAttr("unit.id", newUnitID))
	res, err := s.assign(ctx, membershipID, newUnitID, reason, models.TriggerReallocate, ReasonReallocate)
	end(res.Outcome, err)
	return res, err
}

func (s *Service) assign(ctx context.Context, membershipID, unitID primitive.ObjectID, reason, trigger, defaultReason string) (Result, error) {
	m, err := s.loadActive(ctx, membershipID)
	if err != nil {
		return Result{}, err
	}
	u, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return Result{}, notFound(err, ErrUnitNotFound)
	}
	if u.ClubID != m.ClubID {
		return Result{}, ErrWrongClub
	}
	member, err := s.loadMember(ctx, m.MemberID)
	if err != nil {
		return Result{}, err
	}

	reason = htmlsanitize.PlainText(reason, htmlsanitize.MaxReasonLength)
	if reason == "" {
		reason = defaultReason
	}
	warnings := s.suitability(member, u)

	if m.UnitID != nil && *m.UnitID == u.ID {
		res, err := s.apply(ctx, m, change{
			trigger: trigger,
			outcome: OutcomeUnchanged,
			reason:  reason,
			unitID:  m.UnitID,
			status:  models.AllocationAllocated,
			success: true,
		})
		res.Warnings = warnings
		return res, err
	}

	outcome := OutcomeAllocated
	if m.HasUnit() {
		outcome = OutcomeReallocated
	}
	id := u.ID
	res, placed, err := s.placeLocked(ctx, m, u, change{
		trigger: trigger,
		outcome: outcome,
		reason:  reason,
		unitID:  &id,
		status:  models.AllocationAllocated,
		success: true,
	})
	if err != nil {
		return Result{}, err
	}
	if !placed {
		// Audit-only: the membership keeps its unit and status.
		res, err = s.apply(ctx, m, change{
			trigger: trigger,
			outcome: OutcomeUnitAtCapacity,
			reason:  fmt.Sprintf("unit %q is at capacity", u.Name),
			unitID:  m.UnitID,
			status:  statusOf(m),
		})
		if err != nil {
			return Result{}, err
		}
	}
	res.Warnings = warnings
	return res, nil
}

// suitability lists advisory mismatches for a manual placement.
func (s *Service) suitability(member models.Member, u models.Unit) []string {
	year := s.currentYear()
	var out []string
	if ok, why := s.eligibility.IsEligible(member, year); !ok {
		out = append(out, why)
	}
	if !s.matcher.IsCompatible(u, member, year) {
		out = append(out, fmt.Sprintf("unit %q does not match the member's age or gender", u.Name))
	}
	return out
}

// RemoveFromUnit clears the membership's unit assignment.
func (s *Service) RemoveFromUnit(ctx context.Context, membershipID primitive.ObjectID) (Result, error) {
	ctx, end := s.begin(ctx, "remove_from_unit", idAttr("membership.id", membershipID))
	res, err := s.removeFromUnit(ctx, membershipID)
	end(res.Outcome, err)
	return res, err
}

func (s *Service) removeFromUnit(ctx context.Context, membershipID primitive.ObjectID) (Result, error) {
	m, err := s.loadActive(ctx, membershipID)
	if err != nil {
		return Result{}, err
	}
	return s.apply(ctx, m, change{
		trigger: models.TriggerRemove,
		outcome: OutcomeRemoved,
		reason:  ReasonRemoved,
		status:  models.AllocationUnallocated,
		success: true,
	})
}
