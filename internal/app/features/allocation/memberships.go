// internal/app/features/allocation/memberships.go
package allocation

import (
	"context"
	"net/http"

	engine "github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type unitRequest struct {
	UnitID string `json:"unit_id"`
	Reason string `json:"reason"`
}

// HandleAutoAllocate handles POST /memberships/{id}/auto.
func (h *Handler) HandleAutoAllocate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "auto_allocate", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Svc.AutoAllocate(ctx, id)
	if err != nil {
		h.writeError(w, r, "auto_allocate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAssignUnit handles POST /memberships/{id}/unit.
func (h *Handler) HandleAssignUnit(w http.ResponseWriter, r *http.Request) {
	h.handleUnitRequest(w, r, "allocate_to_unit", h.Svc.AllocateToSpecificUnit)
}

// HandleReallocate handles POST /memberships/{id}/reallocate.
func (h *Handler) HandleReallocate(w http.ResponseWriter, r *http.Request) {
	h.handleUnitRequest(w, r, "reallocate", h.Svc.Reallocate)
}

func (h *Handler) handleUnitRequest(w http.ResponseWriter, r *http.Request, op string,
	call func(ctx context.Context, membershipID, unitID primitive.ObjectID, reason string) (engine.Result, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	var body unitRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, op, err)
		return
	}
	unitID, err := primitive.ObjectIDFromHex(body.UnitID)
	if err != nil {
		h.writeError(w, r, op, errBadID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := call(ctx, id, unitID, body.Reason)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRemoveUnit handles DELETE /memberships/{id}/unit.
func (h *Handler) HandleRemoveUnit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "remove_from_unit", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.RemoveFromUnit(ctx, id)
	if err != nil {
		h.writeError(w, r, "remove_from_unit", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleBirthdayCheck handles POST /memberships/{id}/birthday-check?year=.
func (h *Handler) HandleBirthdayCheck(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "birthday_check", err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, "birthday_check", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.Svc.CheckBirthdayReallocation(ctx, id, year)
	if err != nil {
		h.writeError(w, r, "birthday_check", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ServeHistory handles GET /memberships/{id}/history.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "history", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Svc.History(ctx, id)
	if err != nil {
		h.writeError(w, r, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ServeCompatibleUnits handles GET /memberships/{id}/compatible-units?year=.
func (h *Handler) ServeCompatibleUnits(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, "preview_units", err)
		return
	}
	year, err := h.yearParam(r)
	if err != nil {
		h.writeError(w, r, "preview_units", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	units, err := h.Svc.PreviewUnits(ctx, id, year)
	if err != nil {
		h.writeError(w, r, "preview_units", err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
