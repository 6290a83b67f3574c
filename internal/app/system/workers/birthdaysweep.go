// internal/app/system/workers/birthdaysweep.go
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/programyear"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClubLister lists the clubs a sweep visits.
type ClubLister interface {
	ListActiveIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// BirthdayChecker runs the birthday check for one club.
type BirthdayChecker interface {
	CheckClubBirthdays(ctx context.Context, clubID primitive.ObjectID, referenceYear int) ([]allocation.BirthdayReport, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Year    int
	Clubs   int
	Checked int
	Flagged int
	Failed  int
}

// BirthdaySweep is a background worker that runs the club birthday check for
// every active club, so memberships that aged out of their unit are flagged
// without anyone calling the endpoint.
type BirthdaySweep struct {
	clubs       ClubLister
	checker     BirthdayChecker
	log         *zap.Logger
	interval    time.Duration
	concurrency int
	now         func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBirthdaySweep creates a sweep worker. concurrency bounds how many clubs
// are checked at once.
func NewBirthdaySweep(clubs ClubLister, checker BirthdayChecker, logger *zap.Logger, interval time.Duration, concurrency int) *BirthdaySweep {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BirthdaySweep{
		clubs:       clubs,
		checker:     checker,
		log:         logger,
		interval:    interval,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *BirthdaySweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("birthday sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Int("concurrency", w.concurrency))
}

// Stop signals the worker to stop and waits for an in-flight sweep.
func (w *BirthdaySweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("birthday sweep worker stopped")
}

func (w *BirthdaySweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Batch(), w.log, "birthday sweep")
			_, _ = w.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce sweeps every active club for the current program year. A club
// that fails is logged and counted; the others still run.
func (w *BirthdaySweep) RunOnce(ctx context.Context) (SweepResult, error) {
	res := SweepResult{Year: programyear.Current(w.now())}

	ids, err := w.clubs.ListActiveIDs(ctx)
	if err != nil {
		w.log.Error("birthday sweep: list clubs failed", zap.Error(err))
		return res, err
	}
	res.Clubs = len(ids)

	var checked, flagged, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			reps, err := w.checker.CheckClubBirthdays(gctx, id, res.Year)
			if err != nil {
				failed.Add(1)
				w.log.Warn("birthday sweep: club check failed",
					zap.String("club_id", id.Hex()), zap.Error(err))
				return nil
			}
			checked.Add(int64(len(reps)))
			for _, r := range reps {
				if r.NeedsReallocation {
					flagged.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Checked = int(checked.Load())
	res.Flagged = int(flagged.Load())
	res.Failed = int(failed.Load())
	if res.Flagged > 0 || res.Failed > 0 {
		w.log.Info("birthday sweep finished",
			zap.Int("year", res.Year),
			zap.Int("clubs", res.Clubs),
			zap.Int("checked", res.Checked),
			zap.Int("flagged", res.Flagged),
			zap.Int("failed", res.Failed))
	}
	return res, ctx.Err()
}
