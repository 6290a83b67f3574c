// Package memory holds in-process implementations of the allocation stores.
// They keep the same not-found and version-guard semantics as the Mongo
// stores and are used by tests and local tooling.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store bundles one of each store over shared state.
type Store struct {
	Members     *Members
	Clubs       *Clubs
	Units       *Units
	Memberships *Memberships
	Records     *Records
}

// New returns empty stores.
func New() *Store {
	return &Store{
		Members:     &Members{m: map[primitive.ObjectID]models.Member{}},
		Clubs:       &Clubs{m: map[primitive.ObjectID]models.Club{}},
		Units:       &Units{m: map[primitive.ObjectID]models.Unit{}},
		Memberships: &Memberships{m: map[primitive.ObjectID]models.Membership{}},
		Records:     &Records{},
	}
}

func now() time.Time { return time.Now().UTC() }

/* -------------------------------------------------------------------------- */
/* Members                                                                    */
/* -------------------------------------------------------------------------- */

type Members struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Member
}

// Put inserts or replaces a member, assigning an id when missing.
func (s *Members) Put(m models.Member) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.m[m.ID] = m
	return m
}

func (s *Members) GetByID(_ context.Context, id primitive.ObjectID) (models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.m[id]
	if !ok {
		return models.Member{}, sentinel.ErrNotFound
	}
	return m, nil
}

func (s *Members) UpdateGender(_ context.Context, id primitive.ObjectID, gender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.Gender = gender
	m.UpdatedAt = now()
	s.m[id] = m
	return nil
}

/* -------------------------------------------------------------------------- */
/* Clubs and units                                                            */
/* -------------------------------------------------------------------------- */

type Clubs struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Club
}

func (s *Clubs) Put(c models.Club) models.Club {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.m[c.ID] = c
	return c
}

func (s *Clubs) GetByID(_ context.Context, id primitive.ObjectID) (models.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.m[id]
	if !ok {
		return models.Club{}, sentinel.ErrNotFound
	}
	return c, nil
}

// ListActiveIDs returns active club ids in id order.
func (s *Clubs) ListActiveIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, c := range s.m {
		if c.Status == "" || c.Status == "active" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

type Units struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Unit
}

func (s *Units) Put(u models.Unit) models.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.m[u.ID] = u
	return u
}

// Delete removes a unit. Memberships pointing at it are left alone.
func (s *Units) Delete(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *Units) GetByID(_ context.Context, id primitive.ObjectID) (models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.m[id]
	if !ok {
		return models.Unit{}, sentinel.ErrNotFound
	}
	return u, nil
}

// ListByClub returns the club's units ordered by name.
func (s *Units) ListByClub(_ context.Context, clubID primitive.ObjectID) ([]models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Unit, 0)
	for _, u := range s.m {
		if u.ClubID == clubID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

/* -------------------------------------------------------------------------- */
/* Memberships                                                                */
/* -------------------------------------------------------------------------- */

type Memberships struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Membership
}

func (s *Memberships) Put(m models.Membership) models.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.m[m.ID] = m
	return m
}

// SetActive flips a membership's active flag, as membership management
// does when a member leaves.
func (s *Memberships) SetActive(id primitive.ObjectID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.m[id]; ok {
		m.IsActive = active
		s.m[id] = m
	}
}

func (s *Memberships) GetByID(_ context.Context, id primitive.ObjectID) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.m[id]
	if !ok {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return m, nil
}

func (s *Memberships) ListActiveByMember(_ context.Context, memberID primitive.ObjectID) ([]models.Membership, error) {
	return s.filter(func(m models.Membership) bool { return m.IsActive && m.MemberID == memberID }), nil
}

func (s *Memberships) ListActiveByClub(_ context.Context, clubID primitive.ObjectID) ([]models.Membership, error) {
	return s.filter(func(m models.Membership) bool { return m.IsActive && m.ClubID == clubID }), nil
}

func (s *Memberships) CountActiveInUnit(_ context.Context, unitID primitive.ObjectID) (int64, error) {
	return int64(len(s.filter(func(m models.Membership) bool {
		return m.IsActive && m.UnitID != nil && *m.UnitID == unitID
	}))), nil
}

func (s *Memberships) CountActiveByClub(_ context.Context, clubID primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64)
	for _, m := range s.filter(func(m models.Membership) bool {
		return m.IsActive && m.ClubID == clubID && m.UnitID != nil
	}) {
		out[*m.UnitID]++
	}
	return out, nil
}

func (s *Memberships) UpdateAllocation(_ context.Context, id primitive.ObjectID, expectedVersion int64, upd allocation.AllocationUpdate) (models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[id]
	if !ok {
		return models.Membership{}, sentinel.ErrNotFound
	}
	if m.Version != expectedVersion {
		return models.Membership{}, sentinel.ErrConflict
	}
	if upd.UnitID != nil {
		uid := *upd.UnitID
		m.UnitID = &uid
	} else {
		m.UnitID = nil
	}
	m.AllocationStatus = upd.Status
	m.AllocatedAt = upd.AllocatedAt
	m.Version++
	m.UpdatedAt = now()
	s.m[id] = m
	return m, nil
}

// filter returns matching memberships ordered by id (creation order).
func (s *Memberships) filter(keep func(models.Membership) bool) []models.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Membership, 0)
	for _, m := range s.m {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

/* -------------------------------------------------------------------------- */
/* Records                                                                    */
/* -------------------------------------------------------------------------- */

// Records is an append-only record log.
type Records struct {
	mu   sync.RWMutex
	recs []models.AllocationRecord
}

func (s *Records) Append(_ context.Context, rec models.AllocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// ListByMembership returns the membership's records, newest first.
func (s *Records) ListByMembership(_ context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AllocationRecord, 0)
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].MembershipID == membershipID {
			out = append(out, s.recs[i])
		}
	}
	return out, nil
}

func (s *Records) LatestByMemberships(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AllocationRecord, error) {
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[primitive.ObjectID]models.AllocationRecord)
	for _, r := range s.recs {
		if want[r.MembershipID] {
			out[r.MembershipID] = r
		}
	}
	return out, nil
}

// Query returns the club's matching records, newest first.
func (s *Records) Query(_ context.Context, q allocation.RecordQuery) ([]models.AllocationRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = allocation.DefaultRecordLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AllocationRecord, 0)
	skipped := int64(0)
	for i := len(s.recs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		r := s.recs[i]
		switch {
		case r.ClubID != q.ClubID:
			continue
		case q.Trigger != "" && r.Trigger != q.Trigger:
			continue
		case q.Outcome != "" && r.Outcome != q.Outcome:
			continue
		case q.StartTime != nil && r.Timestamp.Before(*q.StartTime):
			continue
		case q.EndTime != nil && r.Timestamp.After(*q.EndTime):
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// All returns every record in append order.
func (s *Records) All() []models.AllocationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AllocationRecord(nil), s.recs...)
}

var (
	_ allocation.MemberStore     = (*Members)(nil)
	_ allocation.ClubStore       = (*Clubs)(nil)
	_ allocation.UnitStore       = (*Units)(nil)
	_ allocation.MembershipStore = (*Memberships)(nil)
	_ allocation.RecordStore     = (*Records)(nil)
)
