// Package allocation decides which unit of a club each membership belongs to
// and keeps that decision correct as members age or change gender.
//
// The Service is the only writer of a membership's unit assignment. Every
// decision, successful or not, is appended to the allocation trail.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation/metrics"
	"github.com/dalemusser/clubhub/internal/app/system/programyear"
	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/app/system/unitlock"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultLockWait bounds how long a request waits for a unit lock.
const DefaultLockWait = 5 * time.Second

// ErrLockTimeout is returned when a unit lock could not be acquired in
// time. Like ErrConflict, the caller may retry once.
var ErrLockTimeout = fmt.Errorf("unit lock %w: timed out waiting for a concurrent allocation", sentinel.ErrConflict)

// Config wires a Service. The five stores are required.
type Config struct {
	Members     MemberStore
	Clubs       ClubStore
	Units       UnitStore
	Memberships MembershipStore
	Records     RecordStore

	Tx        TxRunner // nil runs writes directly
	Locks     Locker   // nil uses an in-process lock
	LockWait  time.Duration
	MinAge    int
	TrailMode string

	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Service is the allocation orchestrator.
type Service struct {
	members     MemberStore
	clubs       ClubStore
	units       UnitStore
	memberships MembershipStore

	trail       *Trail
	capacity    *CapacityTracker
	eligibility Eligibility
	matcher     Matcher

	tx       TxRunner
	locks    Locker
	lockWait time.Duration

	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

// New validates cfg and builds a Service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Members == nil:
		return nil, errors.New("member store is required")
	case cfg.Clubs == nil:
		return nil, errors.New("club store is required")
	case cfg.Units == nil:
		return nil, errors.New("unit store is required")
	case cfg.Memberships == nil:
		return nil, errors.New("membership store is required")
	case cfg.Records == nil:
		return nil, errors.New("record store is required")
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	tx := cfg.Tx
	if tx == nil {
		tx = directTx{}
	}
	locks := cfg.Locks
	if locks == nil {
		locks = unitlock.NewLocal()
	}
	lockWait := cfg.LockWait
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}

	return &Service{
		members:     cfg.Members,
		clubs:       cfg.Clubs,
		units:       cfg.Units,
		memberships: cfg.Memberships,
		trail:       NewTrail(cfg.Records, log, cfg.TrailMode, now),
		capacity:    NewCapacityTracker(cfg.Memberships, cfg.Units),
		eligibility: Eligibility{MinAge: cfg.MinAge},
		matcher:     Matcher{Now: now},
		tx:          tx,
		locks:       locks,
		lockWait:    lockWait,
		metrics:     cfg.Metrics,
		log:         log,
		now:         now,
		tracer:      otel.Tracer("github.com/dalemusser/clubhub/internal/app/allocation"),
	}, nil
}

// Capacity exposes the capacity tracker for read-only callers.
func (s *Service) Capacity() *CapacityTracker { return s.capacity }

// Matcher exposes the unit matcher.
func (s *Service) Matcher() Matcher { return s.matcher }

// Eligibility exposes the eligibility evaluator.
func (s *Service) Eligibility() Eligibility { return s.eligibility }

type directTx struct{}

func (directTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/* -------------------------------------------------------------------------- */
/* Instrumentation                                                            */
/* -------------------------------------------------------------------------- */

// begin opens a span for op and returns the function that closes it and
// records metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(outcome string, err error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "allocation."+op, trace.WithAttributes(attrs...))
	return ctx, func(outcome string, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			outcome = errorOutcome(err)
		}
		span.SetAttributes(attribute.String("allocation.outcome", outcome))
		s.metrics.IncrementOutcome(op, outcome)
		s.metrics.ObserveOperation(op, time.Since(start))
		span.End()
	}
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return OutcomeConflict
	case IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

func idAttr(key string, id primitive.ObjectID) attribute.KeyValue {
	return attribute.String(key, id.Hex())
}

/* -------------------------------------------------------------------------- */
/* Loading                                                                    */
/* -------------------------------------------------------------------------- */

func (s *Service) loadActive(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return models.Membership{}, notFound(err, ErrMembershipNotFound)
	}
	if !m.IsActive {
		return models.Membership{}, ErrMembershipInactive
	}
	return m, nil
}

func (s *Service) loadMember(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return models.Member{}, notFound(err, ErrMemberNotFound)
	}
	return member, nil
}

func (s *Service) currentYear() int { return programyear.Current(s.now()) }

func ageOf(member models.Member, year int) int {
	return programyear.AgeOn(member.DateOfBirth, year)
}

func (s *Service) ensureClub(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.clubs.GetByID(ctx, id); err != nil {
		return notFound(err, ErrClubNotFound)
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Commit                                                                     */
/* -------------------------------------------------------------------------- */

// change is one allocation decision to persist.
type change struct {
	trigger string
	outcome string
	reason  string
	unitID  *primitive.ObjectID // assignment after the change
	status  string              // status after the change
	corr    string
	success bool
}

func (c change) mutates(m models.Membership) bool {
	return !sameUnit(m.UnitID, c.unitID) || statusOf(m) != c.status
}

// apply writes c to the membership (when it changes anything) and appends
// the audit record, together. A failed decision records a nil new unit.
func (s *Service) apply(ctx context.Context, m models.Membership, c change) (Result, error) {
	updated := m
	var rec models.AllocationRecord

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		if c.mutates(m) {
			upd := AllocationUpdate{UnitID: c.unitID, Status: c.status, AllocatedAt: m.AllocatedAt}
			if !sameUnit(m.UnitID, c.unitID) {
				upd.AllocatedAt = nil
				if c.unitID != nil {
					at := s.now()
					upd.AllocatedAt = &at
				}
			}
			var err error
			updated, err = s.memberships.UpdateAllocation(ctx, m.ID, m.Version, upd)
			if err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return ErrConflict
				}
				return fmt.Errorf("update membership allocation: %w", err)
			}
		}

		entry := models.AllocationRecord{
			MembershipID:   m.ID,
			MemberID:       m.MemberID,
			ClubID:         m.ClubID,
			PreviousUnitID: m.UnitID,
			Trigger:        c.trigger,
			Outcome:        c.outcome,
			Reason:         c.reason,
			CorrelationID:  c.corr,
		}
		if c.success {
			entry.NewUnitID = c.unitID
		}
		var err error
		rec, err = s.trail.Record(ctx, entry)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		MembershipID:   m.ID,
		Success:        c.success,
		Outcome:        c.outcome,
		Status:         statusOf(updated),
		UnitID:         updated.UnitID,
		PreviousUnitID: m.UnitID,
		Message:        c.reason,
		Record:         &rec,
	}, nil
}

// lockUnit takes the unit's lock, waiting at most lockWait.
func (s *Service) lockUnit(ctx context.Context, unitID primitive.ObjectID) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	start := time.Now()
	unlock, err := s.locks.Lock(lctx, "unit:"+unitID.Hex())
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return unlock, nil
}

// placeLocked re-checks u's capacity under its lock and commits c when a
// slot is free. It reports false, without writing, when the unit is full.
func (s *Service) placeLocked(ctx context.Context, m models.Membership, u models.Unit, c change) (Result, bool, error) {
	unlock, err := s.lockUnit(ctx, u.ID)
	if err != nil {
		return Result{}, false, err
	}
	defer unlock()

	ok, err := s.capacity.HasAvailableCapacity(ctx, u)
	if err != nil {
		return Result{}, false, fmt.Errorf("check capacity: %w", err)
	}
	if !ok {
		return Result{}, false, nil
	}
	res, err := s.apply(ctx, m, c)
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}
