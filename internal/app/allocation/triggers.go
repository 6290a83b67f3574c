package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	minReferenceYear = 1900
	maxReferenceYear = 3000
)

// CheckBirthdayReallocation re-evaluates the currently assigned unit for
// the member's age in referenceYear.
//
// It only detects. An incompatible unit moves the membership to
// needs_reallocation and the report lists the alternatives; the move itself
// needs an explicit Reallocate or AutoAllocate.
func (s *Service) CheckBirthdayReallocation(ctx context.Context, membershipID primitive.ObjectID, referenceYear int) (BirthdayReport, error) {
	ctx, end := s.begin(ctx, "birthday_check",
		idAttr("membership.id", membershipID), attribute.Int("reference_year", referenceYear))
	rep, err := s.checkBirthday(ctx, membershipID, referenceYear)
	end(birthdayOutcome(rep), err)
	return rep, err
}

func birthdayOutcome(rep BirthdayReport) string {
	if rep.NeedsReallocation {
		return OutcomeNeedsReallocation
	}
	return OutcomeCompatible
}

func validYear(year int) error {
	if year < minReferenceYear || year > maxReferenceYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func (s *Service) checkBirthday(ctx context.Context, membershipID primitive.ObjectID, year int) (BirthdayReport, error) {
	if err := validYear(year); err != nil {
		return BirthdayReport{}, err
	}
	m, err := s.loadActive(ctx, membershipID)
	if err != nil {
		return BirthdayReport{}, err
	}
	member, err := s.loadMember(ctx, m.MemberID)
	if err != nil {
		return BirthdayReport{}, err
	}
	units, err := s.units.ListByClub(ctx, m.ClubID)
	if err != nil {
		return BirthdayReport{}, fmt.Errorf("list units: %w", err)
	}
	return s.evaluateBirthday(ctx, m, member, units, year)
}

func (s *Service) evaluateBirthday(ctx context.Context, m models.Membership, member models.Member, units []models.Unit, year int) (BirthdayReport, error) {
	rep := BirthdayReport{
		MembershipID:  m.ID,
		ReferenceYear: year,
		Age:           ageOf(member, year),
		CurrentUnitID: m.UnitID,
		Status:        statusOf(m),
	}

	var current *models.Unit
	for i := range units {
		if m.UnitID != nil && units[i].ID == *m.UnitID {
			current = &units[i]
		}
	}
	for _, u := range s.matcher.compatibleForYear(member, units, year) {
		if current != nil && u.ID == current.ID {
			continue
		}
		rep.CompatibleUnits = append(rep.CompatibleUnits, UnitRef{ID: u.ID, Name: u.Name})
	}
	if rep.CompatibleUnits == nil {
		rep.CompatibleUnits = []UnitRef{}
	}

	if !m.HasUnit() {
		return rep, nil
	}

	// A unit missing from the club's list no longer admits anyone.
	rep.CurrentUnitCompatible = current != nil && s.matcher.IsCompatible(*current, member, year)
	rep.NeedsReallocation = !rep.CurrentUnitCompatible

	status := statusOf(m)
	var c *change
	switch {
	case rep.NeedsReallocation && status != models.AllocationNeedsReallocation:
		name := "(deleted)"
		if current != nil {
			name = current.Name
		}
		c = &change{
			trigger: models.TriggerBirthdayCheck,
			outcome: OutcomeNeedsReallocation,
			reason:  fmt.Sprintf("member is %d on the %d reference date and no longer fits unit %q", rep.Age, year, name),
			unitID:  m.UnitID,
			status:  models.AllocationNeedsReallocation,
			success: true,
		}
	case !rep.NeedsReallocation && status == models.AllocationNeedsReallocation:
		c = &change{
			trigger: models.TriggerBirthdayCheck,
			outcome: OutcomeCompatible,
			reason:  fmt.Sprintf("member fits the current unit again on the %d reference date", year),
			unitID:  m.UnitID,
			status:  models.AllocationAllocated,
			success: true,
		}
	}
	if c == nil {
		return rep, nil
	}

	res, err := s.apply(ctx, m, *c)
	if err != nil {
		return BirthdayReport{}, err
	}
	rep.Status = res.Status
	rep.Record = res.Record
	return rep, nil
}

// HandleGenderChange records the member's new gender and moves every
// active membership whose unit no longer admits the member. Unlike a
// birthday, a gender change is corrected immediately through AutoAllocate.
// The records written by one call share a correlation id.
func (s *Service) HandleGenderChange(ctx context.Context, memberID primitive.ObjectID, newGender string) (GenderChangeReport, error) {
	ctx, end := s.begin(ctx, "gender_change", idAttr("member.id", memberID))
	rep, err := s.handleGenderChange(ctx, memberID, newGender)
	end("checked", err)
	return rep, err
}

func (s *Service) handleGenderChange(ctx context.Context, memberID primitive.ObjectID, gender string) (GenderChangeReport, error) {
	if !models.ValidGender(gender) {
		return GenderChangeReport{}, ErrInvalidGender
	}
	member, err := s.loadMember(ctx, memberID)
	if err != nil {
		return GenderChangeReport{}, err
	}
	if err := s.members.UpdateGender(ctx, memberID, gender); err != nil {
		return GenderChangeReport{}, notFound(err, ErrMemberNotFound)
	}
	member.Gender = gender

	rep := GenderChangeReport{
		MemberID:      memberID,
		Gender:        gender,
		CorrelationID: uuid.NewString(),
		Results:       []Result{},
	}

	memberships, err := s.memberships.ListActiveByMember(ctx, memberID)
	if err != nil {
		return GenderChangeReport{}, fmt.Errorf("list memberships: %w", err)
	}
	year := s.currentYear()
	for _, m := range memberships {
		if !m.HasUnit() {
			continue
		}
		rep.Checked++

		u, err := s.units.GetByID(ctx, *m.UnitID)
		switch {
		case err == nil:
			if s.matcher.IsCompatible(u, member, year) {
				continue
			}
		case errors.Is(err, sentinel.ErrNotFound):
		default:
			return GenderChangeReport{}, fmt.Errorf("load unit: %w", err)
		}

		res, err := s.autoAllocate(ctx, m.ID, models.TriggerGenderChange, ReasonGenderChange, rep.CorrelationID)
		if err != nil {
			return rep, err
		}
		rep.Results = append(rep.Results, res)
	}

	s.log.Info("member gender changed",
		zap.String("member_id", memberID.Hex()),
		zap.String("gender", gender),
		zap.String("correlation_id", rep.CorrelationID),
		zap.Int("memberships_checked", rep.Checked),
		zap.Int("memberships_affected", len(rep.Results)))
	return rep, nil
}

// CheckClubBirthdays runs CheckBirthdayReallocation over every allocated
// active membership in the club.
func (s *Service) CheckClubBirthdays(ctx context.Context, clubID primitive.ObjectID, referenceYear int) ([]BirthdayReport, error) {
	ctx, end := s.begin(ctx, "club_birthday_check",
		idAttr("club.id", clubID), attribute.Int("reference_year", referenceYear))
	reps, err := s.checkClubBirthdays(ctx, clubID, referenceYear)
	end("checked", err)
	return reps, err
}

func (s *Service) checkClubBirthdays(ctx context.Context, clubID primitive.ObjectID, year int) ([]BirthdayReport, error) {
	if err := validYear(year); err != nil {
		return nil, err
	}
	if err := s.ensureClub(ctx, clubID); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListActiveByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	units, err := s.units.ListByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	out := make([]BirthdayReport, 0, len(memberships))
	for _, m := range memberships {
		if !m.HasUnit() {
			continue
		}
		member, err := s.loadMember(ctx, m.MemberID)
		if err != nil {
			return nil, err
		}
		rep, err := s.evaluateBirthday(ctx, m, member, units, year)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}
