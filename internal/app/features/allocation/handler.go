// internal/app/features/allocation/handler.go
package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	engine "github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/programyear"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/app/system/sentinel"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Handler exposes the allocation engine as JSON endpoints.
type Handler struct {
	Svc *engine.Service
	Log *zap.Logger

	// BatchLimit, when set, limits club-wide runs per club.
	BatchLimit *ratelimit.Limiter

	// Now is used for the default reference year.
	Now func() time.Time
}

// NewHandler constructs an allocation Handler.
func NewHandler(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

var (
	errBadID   = errors.New("invalid id")
	errBadYear = errors.New("year must be a number")
	errBadBody = errors.New("invalid JSON body")
	errBadPage = errors.New("limit and offset must be numbers; since and until must be RFC 3339 times")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP status codes. Unexpected errors
// are logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, errBadID), errors.Is(err, errBadYear), errors.Is(err, errBadBody), errors.Is(err, errBadPage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, sentinel.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case engine.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, sentinel.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		h.Log.Warn("allocation request timed out", zap.String("op", op), zap.String("path", r.URL.Path))
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		h.Log.Error("allocation request failed",
			zap.String("op", op),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func idParam(r *http.Request, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, errBadID
	}
	return oid, nil
}

// yearParam reads ?year=, defaulting to the current program year.
func (h *Handler) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return programyear.Current(h.Now()), nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadYear
	}
	return y, nil
}

// recordQuery reads the ?trigger=&outcome=&since=&until=&limit=&offset=
// filters of the club records endpoint.
func recordQuery(r *http.Request) (engine.RecordQuery, error) {
	v := r.URL.Query()
	q := engine.RecordQuery{
		Trigger: v.Get("trigger"),
		Outcome: v.Get("outcome"),
	}
	var err error
	if q.Limit, err = int64Param(v.Get("limit")); err != nil {
		return q, err
	}
	if q.Offset, err = int64Param(v.Get("offset")); err != nil {
		return q, err
	}
	if q.StartTime, err = timeParam(v.Get("since")); err != nil {
		return q, err
	}
	if q.EndTime, err = timeParam(v.Get("until")); err != nil {
		return q, err
	}
	return q, nil
}

func int64Param(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errBadPage
	}
	return n, nil
}

func timeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errBadPage
	}
	return &t, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}
