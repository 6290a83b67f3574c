package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/store/memory"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestBirthdaySweep_RunOnce(t *testing.T) {
	now := time.Date(2027, time.September, 1, 0, 0, 0, 0, time.UTC)
	st := memory.New()
	svc, err := allocation.New(allocation.Config{
		Members:     st.Members,
		Clubs:       st.Clubs,
		Units:       st.Units,
		Memberships: st.Memberships,
		Records:     st.Records,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("allocation.New failed: %v", err)
	}

	var clubIDs []primitive.ObjectID
	// Two clubs, each with one member who turned 13 and outgrew [10,13).
	for _, name := range []string{"Eagles", "Hawks"} {
		club := st.Clubs.Put(models.Club{Name: name, Status: "active"})
		clubIDs = append(clubIDs, club.ID)
		unit := st.Units.Put(models.Unit{ClubID: club.ID, Name: "Juniors", AgeMin: 10, AgeMax: 13, GenderRestriction: models.RestrictAny})
		member := st.Members.Put(models.Member{FullName: "Kid", DateOfBirth: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), Gender: models.GenderMale})
		st.Memberships.Put(models.Membership{
			MemberID: member.ID, ClubID: club.ID, UnitID: &unit.ID,
			IsActive: true, AllocationStatus: models.AllocationAllocated,
		})
	}
	st.Clubs.Put(models.Club{Name: "Closed", Status: "inactive"})

	w := NewBirthdaySweep(st.Clubs, svc, zap.NewNop(), time.Hour, 2)
	w.now = func() time.Time { return now }

	res, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	want := SweepResult{Year: 2027, Clubs: 2, Checked: 2, Flagged: 2}
	if res != want {
		t.Errorf("RunOnce: got %+v, want %+v", res, want)
	}

	flagged := 0
	for _, id := range clubIDs {
		ms, err := st.Memberships.ListActiveByClub(context.Background(), id)
		if err != nil {
			t.Fatalf("ListActiveByClub failed: %v", err)
		}
		for _, m := range ms {
			if m.AllocationStatus == models.AllocationNeedsReallocation {
				flagged++
			}
		}
	}
	if flagged != 2 {
		t.Errorf("flagged memberships: got %d, want 2", flagged)
	}
}

type failingChecker struct{ bad primitive.ObjectID }

func (f failingChecker) CheckClubBirthdays(_ context.Context, clubID primitive.ObjectID, _ int) ([]allocation.BirthdayReport, error) {
	if clubID == f.bad {
		return nil, errors.New("boom")
	}
	return []allocation.BirthdayReport{{MembershipID: primitive.NewObjectID()}}, nil
}

func TestBirthdaySweep_ClubFailureDoesNotStopOthers(t *testing.T) {
	st := memory.New()
	bad := st.Clubs.Put(models.Club{Name: "Bad"})
	st.Clubs.Put(models.Club{Name: "Good"})

	w := NewBirthdaySweep(st.Clubs, failingChecker{bad: bad.ID}, zap.NewNop(), time.Hour, 0)

	res, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Clubs != 2 || res.Checked != 1 || res.Failed != 1 {
		t.Errorf("RunOnce: got %+v", res)
	}
}

func TestBirthdaySweep_StartStop(t *testing.T) {
	w := NewBirthdaySweep(memory.New().Clubs, failingChecker{}, zap.NewNop(), time.Millisecond, 1)
	w.Start()
	time.Sleep(5 * time.Millisecond)
	w.Stop()
}
