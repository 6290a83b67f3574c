package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GetMembersNeedingAllocation returns the club's active memberships that
// are unallocated or whose last allocation failed, each with its most
// recent audit record.
func (s *Service) GetMembersNeedingAllocation(ctx context.Context, clubID primitive.ObjectID) ([]PendingMembership, error) {
	ctx, end := s.begin(ctx, "members_needing_allocation", idAttr("club.id", clubID))
	out, err := s.pending(ctx, clubID)
	end("listed", err)
	return out, err
}

func (s *Service) pending(ctx context.Context, clubID primitive.ObjectID) ([]PendingMembership, error) {
	if err := s.ensureClub(ctx, clubID); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListActiveByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	out := make([]PendingMembership, 0)
	ids := make([]primitive.ObjectID, 0)
	for _, m := range memberships {
		st := statusOf(m)
		if st != models.AllocationUnallocated && st != models.AllocationFailed {
			continue
		}
		out = append(out, PendingMembership{Membership: m, Status: st})
		ids = append(ids, m.ID)
	}

	latest, err := s.trail.Latest(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest records: %w", err)
	}
	for i := range out {
		if rec, ok := latest[out[i].Membership.ID]; ok {
			out[i].LastRecord = &rec
		}
	}
	return out, nil
}

// GetClubCapacityStatus returns the occupancy of every unit in the club.
func (s *Service) GetClubCapacityStatus(ctx context.Context, clubID primitive.ObjectID) ([]UnitCapacity, error) {
	ctx, end := s.begin(ctx, "club_capacity", idAttr("club.id", clubID))
	out, err := s.clubCapacity(ctx, clubID)
	end("listed", err)
	return out, err
}

func (s *Service) clubCapacity(ctx context.Context, clubID primitive.ObjectID) ([]UnitCapacity, error) {
	if err := s.ensureClub(ctx, clubID); err != nil {
		return nil, err
	}
	return s.capacity.ClubStatus(ctx, clubID)
}

// History returns the membership's audit timeline, newest first. Inactive
// memberships keep their history.
func (s *Service) History(ctx context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error) {
	ctx, end := s.begin(ctx, "history", idAttr("membership.id", membershipID))
	out, err := s.history(ctx, membershipID)
	end("listed", err)
	return out, err
}

func (s *Service) history(ctx context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error) {
	if _, err := s.memberships.GetByID(ctx, membershipID); err != nil {
		return nil, notFound(err, ErrMembershipNotFound)
	}
	return s.trail.History(ctx, membershipID)
}

// Record page sizes for ClubRecords.
const (
	DefaultRecordLimit = 100
	MaxRecordLimit     = 500
)

// ClubRecords returns a page of the club's audit records, newest first,
// filtered by q's trigger, outcome and time range. q.ClubID is ignored.
func (s *Service) ClubRecords(ctx context.Context, clubID primitive.ObjectID, q RecordQuery) ([]models.AllocationRecord, error) {
	ctx, end := s.begin(ctx, "club_records", idAttr("club.id", clubID))
	out, err := s.clubRecords(ctx, clubID, q)
	end("listed", err)
	return out, err
}

func (s *Service) clubRecords(ctx context.Context, clubID primitive.ObjectID, q RecordQuery) ([]models.AllocationRecord, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return nil, ErrInvalidPage
	}
	if err := s.ensureClub(ctx, clubID); err != nil {
		return nil, err
	}
	q.ClubID = clubID
	switch {
	case q.Limit == 0:
		q.Limit = DefaultRecordLimit
	case q.Limit > MaxRecordLimit:
		q.Limit = MaxRecordLimit
	}
	recs, err := s.trail.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return recs, nil
}

// AllocatePending runs AutoAllocate for every membership returned by
// GetMembersNeedingAllocation, one at a time. A membership that loses a
// concurrent race is reported with Outcome=conflict and the rest continue.
func (s *Service) AllocatePending(ctx context.Context, clubID primitive.ObjectID) ([]Result, error) {
	ctx, end := s.begin(ctx, "allocate_pending", idAttr("club.id", clubID))
	out, err := s.allocatePending(ctx, clubID)
	end("listed", err)
	return out, err
}

func (s *Service) allocatePending(ctx context.Context, clubID primitive.ObjectID) ([]Result, error) {
	pending, err := s.pending(ctx, clubID)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(pending))
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.autoAllocate(ctx, p.Membership.ID, models.TriggerAuto, ReasonAuto, "")
		switch {
		case err == nil:
		case errors.Is(err, sentinel.ErrConflict):
			s.log.Warn("pending allocation lost a concurrent update",
				zap.String("membership_id", p.Membership.ID.Hex()), zap.Error(err))
			res = Result{
				MembershipID: p.Membership.ID,
				Outcome:      OutcomeConflict,
				Status:       p.Status,
				UnitID:       p.Membership.UnitID,
				Message:      err.Error(),
			}
		default:
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// PreviewUnits lists the units that would admit the membership's member in
// referenceYear (the current program year when zero), best fit first, with
// their occupancy. Nothing is written.
func (s *Service) PreviewUnits(ctx context.Context, membershipID primitive.ObjectID, referenceYear int) ([]UnitCapacity, error) {
	ctx, end := s.begin(ctx, "preview_units",
		idAttr("membership.id", membershipID), attribute.Int("reference_year", referenceYear))
	out, err := s.preview(ctx, membershipID, referenceYear)
	end("listed", err)
	return out, err
}

func (s *Service) preview(ctx context.Context, membershipID primitive.ObjectID, year int) ([]UnitCapacity, error) {
	if year == 0 {
		year = s.currentYear()
	}
	if err := validYear(year); err != nil {
		return nil, err
	}
	m, err := s.loadActive(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	member, err := s.loadMember(ctx, m.MemberID)
	if err != nil {
		return nil, err
	}
	units, err := s.units.ListByClub(ctx, m.ClubID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	candidates := s.matcher.compatibleForYear(member, units, year)
	out := make([]UnitCapacity, 0, len(candidates))
	for _, u := range candidates {
		n, err := s.capacity.CurrentMemberCount(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("count unit members: %w", err)
		}
		out = append(out, UnitCapacity{
			UnitID:               u.ID,
			Name:                 u.Name,
			CurrentCount:         n,
			Capacity:             u.Capacity,
			HasAvailableCapacity: u.Capacity == nil || n < *u.Capacity,
		})
	}
	return out, nil
}
