package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/store"
)

// sweepLookback bounds the sweep to accounts with recent ledger activity.
// Rank metrics only move when money does, so anyone idle longer than this
// cannot have newly qualified.
const sweepLookback = 48 * time.Hour

// RankSweepJob periodically re-evaluates ranks for recently active accounts.
// Purchases advance ranks inline, but team volume accrued under an account by
// its downline does not trigger a purchase-time check for the upline, so the
// sweep catches those.
type RankSweepJob struct {
	store   store.Store
	rankSvc *rank.Service
}

func NewRankSweepJob(st store.Store, rankSvc *rank.Service) *RankSweepJob {
	return &RankSweepJob{
		store:   st,
		rankSvc: rankSvc,
	}
}

// Schedule registers the sweep to run every intervalMinutes.
func (j *RankSweepJob) Schedule(scheduler *gocron.Scheduler, intervalMinutes int) error {
	_, err := scheduler.Every(intervalMinutes).Minutes().Do(func() {
		j.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rank sweep: %w", err)
	}
	return nil
}

// Run evaluates every account with ledger activity inside the lookback
// window. Per-account failures are logged and do not stop the sweep.
func (j *RankSweepJob) Run(ctx context.Context) {
	since := time.Now().UTC().Add(-sweepLookback)
	ids, err := j.store.ActiveAccountIDsSince(ctx, since)
	if err != nil {
		log.Printf("rank sweep: failed to list active accounts: %v", err)
		return
	}

	var advanced int
	for _, id := range ids {
		achievements, err := j.rankSvc.AutoAdvance(ctx, id)
		if err != nil {
			log.Printf("rank sweep: account %s: %v", id, err)
			continue
		}
		advanced += len(achievements)
	}

	if advanced > 0 {
		log.Printf("rank sweep: evaluated %d accounts, %d new rank achievements", len(ids), advanced)
	}
}
