// internal/app/features/allocation/routes.go
package allocation

import (
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the allocation API subrouter.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/memberships/{id}", func(mr chi.Router) {
		mr.Post("/auto", h.HandleAutoAllocate)
		mr.Post("/unit", h.HandleAssignUnit)
		mr.Delete("/unit", h.HandleRemoveUnit)
		mr.Post("/reallocate", h.HandleReallocate)
		mr.Post("/birthday-check", h.HandleBirthdayCheck)
		mr.Get("/history", h.ServeHistory)
		mr.Get("/compatible-units", h.ServeCompatibleUnits)
	})

	r.Post("/members/{id}/gender", h.HandleGenderChange)

	r.Route("/clubs/{id}", func(cr chi.Router) {
		cr.Get("/pending", h.ServePending)
		cr.Get("/capacity", h.ServeCapacity)
		cr.Get("/records", h.ServeClubRecords)

		// Club-wide runs are limited per club when a limiter is configured.
		batch := cr.With()
		if h.BatchLimit != nil {
			batch = cr.With(ratelimit.Middleware(h.BatchLimit, clubKey))
		}
		batch.Post("/allocate-pending", h.HandleAllocatePending)
		batch.Post("/birthday-check", h.HandleClubBirthdayCheck)
	})

	return r
}

func clubKey(r *http.Request) string {
	return "club:" + chi.URLParam(r, "id")
}
