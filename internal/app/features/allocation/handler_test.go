package allocation_test

import (
	"net/http"
	"testing"
	"time"

	engine "github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/features/allocation"
	"github.com/dalemusser/clubhub/internal/app/store/memory"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var now = time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	store  *memory.Store
	router chi.Router
	club   models.Club
	unit   models.Unit
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	svc, err := engine.New(engine.Config{
		Members:     st.Members,
		Clubs:       st.Clubs,
		Units:       st.Units,
		Memberships: st.Memberships,
		Records:     st.Records,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	h := allocation.NewHandler(svc, zap.NewNop())
	h.Now = func() time.Time { return now }

	club := st.Clubs.Put(models.Club{Name: "Eagles"})
	one := 1
	unit := st.Units.Put(models.Unit{
		ClubID: club.ID, Name: "Unit A", AgeMin: 10, AgeMax: 13,
		GenderRestriction: models.RestrictAny, Capacity: &one,
	})
	return &env{store: st, router: allocation.Routes(h), club: club, unit: unit}
}

func (e *env) join(born time.Time, gender string) models.Membership {
	m := e.store.Members.Put(models.Member{FullName: "Kid", DateOfBirth: born, Gender: gender})
	return e.store.Memberships.Put(models.Membership{
		MemberID: m.ID, ClubID: e.club.ID, IsActive: true,
		AllocationStatus: models.AllocationUnallocated,
	})
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAutoAllocate(t *testing.T) {
	e := newEnv(t)
	m := e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)

	rec := e.do(testutil.NewRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/auto"))
	rec.AssertStatus(t, http.StatusOK)

	var res engine.Result
	rec.DecodeJSON(t, &res)
	if !res.Success {
		t.Errorf("Success: got false, want true (%s)", res.Message)
	}
	if res.UnitID == nil || *res.UnitID != e.unit.ID {
		t.Errorf("UnitID: got %v, want %s", res.UnitID, e.unit.ID.Hex())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
}

func TestAssignUnit_AtCapacityIsNotAnError(t *testing.T) {
	e := newEnv(t)
	first := e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	second := e.join(time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)

	body := map[string]string{"unit_id": e.unit.ID.Hex(), "reason": "coach request"}
	e.do(testutil.NewJSONRequest(http.MethodPost, "/memberships/"+first.ID.Hex()+"/unit", body)).
		AssertStatus(t, http.StatusOK)

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/memberships/"+second.ID.Hex()+"/unit", body))
	rec.AssertStatus(t, http.StatusOK)

	var res engine.Result
	rec.DecodeJSON(t, &res)
	if res.Success {
		t.Error("expected Success=false for a full unit")
	}
	if res.Outcome != engine.OutcomeUnitAtCapacity {
		t.Errorf("Outcome: got %q, want %q", res.Outcome, engine.OutcomeUnitAtCapacity)
	}
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)
	m := e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	other := e.store.Clubs.Put(models.Club{Name: "Hawks"})
	foreign := e.store.Units.Put(models.Unit{ClubID: other.ID, Name: "Foreign", AgeMin: 10, AgeMax: 13, GenderRestriction: models.RestrictAny})

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"bad membership id", testutil.NewRequest(http.MethodPost, "/memberships/nope/auto"), http.StatusBadRequest},
		{"unknown membership", testutil.NewRequest(http.MethodPost, "/memberships/"+primitive.NewObjectID().Hex()+"/auto"), http.StatusNotFound},
		{"bad body", testutil.NewJSONRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/unit", map[string]int{"bogus": 1}), http.StatusBadRequest},
		{"unit in another club", testutil.NewJSONRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/reallocate",
			map[string]string{"unit_id": foreign.ID.Hex()}), http.StatusBadRequest},
		{"unknown unit", testutil.NewJSONRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/unit",
			map[string]string{"unit_id": primitive.NewObjectID().Hex()}), http.StatusNotFound},
		{"bad year", testutil.NewRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/birthday-check?year=soon"), http.StatusBadRequest},
		{"year out of range", testutil.NewRequest(http.MethodPost, "/memberships/"+m.ID.Hex()+"/birthday-check?year=99"), http.StatusBadRequest},
		{"invalid gender", testutil.NewJSONRequest(http.MethodPost, "/members/"+m.MemberID.Hex()+"/gender",
			map[string]string{"gender": "robot"}), http.StatusBadRequest},
		{"unknown club", testutil.NewRequest(http.MethodGet, "/clubs/"+primitive.NewObjectID().Hex()+"/capacity"), http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e.do(tc.req).AssertStatus(t, tc.want)
		})
	}
}

func TestClubEndpoints(t *testing.T) {
	e := newEnv(t)
	e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	e.join(time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	base := "/clubs/" + e.club.ID.Hex()

	var pending []engine.PendingMembership
	rec := e.do(testutil.NewRequest(http.MethodGet, base+"/pending"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &pending)
	if len(pending) != 2 {
		t.Fatalf("pending: got %d, want 2", len(pending))
	}

	var results []engine.Result
	rec = e.do(testutil.NewRequest(http.MethodPost, base+"/allocate-pending"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &results)
	if len(results) != 2 {
		t.Fatalf("allocate-pending: got %d results, want 2", len(results))
	}

	var capacity []engine.UnitCapacity
	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/capacity"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &capacity)
	if len(capacity) != 1 || capacity[0].CurrentCount != 1 || capacity[0].HasAvailableCapacity {
		t.Errorf("capacity: got %+v", capacity)
	}

	var reports []engine.BirthdayReport
	rec = e.do(testutil.NewRequest(http.MethodPost, base+"/birthday-check?year=2027"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &reports)
	if len(reports) != 1 || !reports[0].NeedsReallocation {
		t.Errorf("birthday-check: got %+v", reports)
	}
}

func TestClubRecords(t *testing.T) {
	e := newEnv(t)
	e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	e.join(time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	base := "/clubs/" + e.club.ID.Hex()
	e.do(testutil.NewRequest(http.MethodPost, base+"/allocate-pending")).AssertStatus(t, http.StatusOK)

	var recs []models.AllocationRecord
	rec := e.do(testutil.NewRequest(http.MethodGet, base+"/records"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &recs)
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}

	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/records?trigger=auto&outcome=no_capacity"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &recs)
	if len(recs) != 1 || recs[0].Outcome != engine.OutcomeNoCapacity {
		t.Errorf("filtered records: got %+v", recs)
	}

	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/records?limit=1&offset=1"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &recs)
	if len(recs) != 1 {
		t.Errorf("paged records: got %d, want 1", len(recs))
	}

	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/records?until=2025-01-01T00:00:00Z"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &recs)
	if len(recs) != 0 {
		t.Errorf("records before the run: got %d, want 0", len(recs))
	}

	for _, q := range []string{"limit=ten", "offset=-1", "since=yesterday"} {
		e.do(testutil.NewRequest(http.MethodGet, base+"/records?"+q)).AssertStatus(t, http.StatusBadRequest)
	}
	e.do(testutil.NewRequest(http.MethodGet, "/clubs/"+primitive.NewObjectID().Hex()+"/records")).
		AssertStatus(t, http.StatusNotFound)
}

func TestHistoryAndRemove(t *testing.T) {
	e := newEnv(t)
	m := e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)
	base := "/memberships/" + m.ID.Hex()

	e.do(testutil.NewRequest(http.MethodPost, base+"/auto")).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewRequest(http.MethodDelete, base+"/unit")).AssertStatus(t, http.StatusOK)

	var recs []models.AllocationRecord
	rec := e.do(testutil.NewRequest(http.MethodGet, base+"/history"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &recs)
	if len(recs) != 2 {
		t.Fatalf("history: got %d records, want 2", len(recs))
	}
	if recs[0].Outcome != engine.OutcomeRemoved {
		t.Errorf("newest record: got %q, want %q", recs[0].Outcome, engine.OutcomeRemoved)
	}

	var units []engine.UnitCapacity
	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/compatible-units"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &units)
	if len(units) != 1 || units[0].UnitID != e.unit.ID {
		t.Errorf("compatible-units: got %+v", units)
	}
}

func TestGenderChange(t *testing.T) {
	e := newEnv(t)
	m := e.join(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), models.GenderMale)

	var rep engine.GenderChangeReport
	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/members/"+m.MemberID.Hex()+"/gender",
		map[string]string{"gender": models.GenderFemale}))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &rep)
	if rep.Gender != models.GenderFemale || rep.CorrelationID == "" {
		t.Errorf("report: got %+v", rep)
	}
}

func TestClubBatchRateLimit(t *testing.T) {
	st := memory.New()
	svc, err := engine.New(engine.Config{
		Members: st.Members, Clubs: st.Clubs, Units: st.Units,
		Memberships: st.Memberships, Records: st.Records,
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	h := allocation.NewHandler(svc, zap.NewNop())
	h.BatchLimit = ratelimit.New(1, time.Minute)
	defer h.BatchLimit.Close()
	router := allocation.Routes(h)
	club := st.Clubs.Put(models.Club{Name: "Eagles"})

	post := func(path string) int {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, testutil.NewRequest(http.MethodPost, path))
		return rec.Code
	}

	base := "/clubs/" + club.ID.Hex()
	if code := post(base + "/allocate-pending"); code != http.StatusOK {
		t.Errorf("first run: got %d, want %d", code, http.StatusOK)
	}
	if code := post(base + "/birthday-check"); code != http.StatusTooManyRequests {
		t.Errorf("second run: got %d, want %d", code, http.StatusTooManyRequests)
	}
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, base+"/capacity"))
	rec.AssertStatus(t, http.StatusOK)
}
