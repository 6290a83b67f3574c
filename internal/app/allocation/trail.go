package allocation

import (
	"context"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Trail log modes.
const (
	TrailAll = "all" // record store + zap
	TrailDB  = "db"  // record store only
)

// Trail is the allocation audit trail. Records always go to the record
// store, which is authoritative; the mode only controls the zap mirror.
// There is no way to edit or delete a record; corrections are new records.
type Trail struct {
	store  RecordStore
	zapLog *zap.Logger
	mode   string
	now    func() time.Time
}

// NewTrail creates a Trail. An unknown mode behaves as TrailAll.
func NewTrail(store RecordStore, zapLog *zap.Logger, mode string, now func() time.Time) *Trail {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Trail{store: store, zapLog: zapLog, mode: mode, now: now}
}

// Record assigns an id and timestamp to rec and appends it.
func (t *Trail) Record(ctx context.Context, rec models.AllocationRecord) (models.AllocationRecord, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.now()
	}
	if err := t.store.Append(ctx, rec); err != nil {
		t.zapLog.Error("failed to store allocation record",
			zap.Error(err),
			zap.String("membership_id", rec.MembershipID.Hex()),
			zap.String("trigger", rec.Trigger))
		return models.AllocationRecord{}, err
	}
	if t.mode != TrailDB {
		t.logToZap(rec)
	}
	return rec, nil
}

// History returns every record for a membership, newest first.
func (t *Trail) History(ctx context.Context, membershipID primitive.ObjectID) ([]models.AllocationRecord, error) {
	return t.store.ListByMembership(ctx, membershipID)
}

// Latest returns the most recent record per membership. Memberships with no
// records are absent from the map.
func (t *Trail) Latest(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AllocationRecord, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]models.AllocationRecord{}, nil
	}
	return t.store.LatestByMemberships(ctx, ids)
}

// Query returns a page of a club's records, newest first.
func (t *Trail) Query(ctx context.Context, q RecordQuery) ([]models.AllocationRecord, error) {
	return t.store.Query(ctx, q)
}

func (t *Trail) logToZap(rec models.AllocationRecord) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("membership_id", rec.MembershipID.Hex()),
		zap.String("member_id", rec.MemberID.Hex()),
		zap.String("club_id", rec.ClubID.Hex()),
		zap.String("trigger", rec.Trigger),
		zap.String("outcome", rec.Outcome),
		zap.String("reason", rec.Reason),
	}
	if rec.PreviousUnitID != nil {
		fields = append(fields, zap.String("previous_unit_id", rec.PreviousUnitID.Hex()))
	}
	if rec.NewUnitID != nil {
		fields = append(fields, zap.String("new_unit_id", rec.NewUnitID.Hex()))
	}
	if rec.CorrelationID != "" {
		fields = append(fields, zap.String("correlation_id", rec.CorrelationID))
	}
	t.zapLog.Info("allocation record", fields...)
}
