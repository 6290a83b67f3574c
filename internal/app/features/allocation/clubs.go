// internal/app/features/allocation/clubs.go
package allocation

import (
	"context"
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
)

type genderRequest struct {
	Gender string `json:"gender"`
}

// HandleGenderChange handles POST /members/{id}/gender.
func (h *Handler) HandleGenderChange(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "gender_change", err)
		return
	}
	var body genderRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, "gender_change", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rep, err := h.Svc.HandleGenderChange(ctx, id, body.Gender)
	if err != nil {
		h.writeError(w, r, "gender_change", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ServePending handles GET /clubs/{id}/pending.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "pending", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Svc.GetMembersNeedingAllocation(ctx, id)
	if err != nil {
		h.writeError(w, r, "pending", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ServeCapacity handles GET /clubs/{id}/capacity.
func (h *Handler) ServeCapacity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "capacity", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Svc.GetClubCapacityStatus(ctx, id)
	if err != nil {
		h.writeError(w, r, "capacity", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ServeClubRecords handles GET /clubs/{id}/records.
func (h *Handler) ServeClubRecords(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "club_records", err)
		return
	}
	q, err := recordQuery(r)
	if err != nil {
		h.writeError(w, r, "club_records", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Svc.ClubRecords(ctx, id, q)
	if err != nil {
		h.writeError(w, r, "club_records", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAllocatePending handles POST /clubs/{id}/allocate-pending.
func (h *Handler) HandleAllocatePending(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "allocate_pending", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "allocate pending memberships")
	defer cancel()

	out, err := h.Svc.AllocatePending(ctx, id)
	if err != nil {
		h.writeError(w, r, "allocate_pending", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleClubBirthdayCheck handles POST /clubs/{id}/birthday-check?year=.
func (h *Handler) HandleClubBirthdayCheck(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "club_birthday_check", err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, "club_birthday_check", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "club birthday check")
	defer cancel()

	out, err := h.Svc.CheckClubBirthdays(ctx, id, year)
	if err != nil {
		h.writeError(w, r, "club_birthday_check", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
