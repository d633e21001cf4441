package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"

	"github.com/nexarise/backend/internal/services/roi"
)

// roiLockTTL keeps the day lock alive past the run window so a second
// instance coming up later the same day still sees it, while letting the key
// expire before the next day's run.
const roiLockTTL = 26 * time.Hour

// RoiDistributionJob runs the daily earnings payout across all active
// packages. When a Redis client is configured the job takes a per-day lock so
// only one instance in a deployment executes the run.
type RoiDistributionJob struct {
	roiSvc *roi.Service
	redis  *redis.Client
}

// NewRoiDistributionJob creates a new ROI distribution job. The redis client
// may be nil, in which case the lock step is skipped.
func NewRoiDistributionJob(roiSvc *roi.Service, redisClient *redis.Client) *RoiDistributionJob {
	return &RoiDistributionJob{
		roiSvc: roiSvc,
		redis:  redisClient,
	}
}

// Schedule registers the job to run once a day at the given UTC hour.
func (j *RoiDistributionJob) Schedule(scheduler *gocron.Scheduler, hourUTC int) error {
	at := fmt.Sprintf("%02d:00", hourUTC)
	_, err := scheduler.Every(1).Day().At(at).Do(func() {
		j.Run(context.Background(), time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule ROI distribution: %w", err)
	}
	return nil
}

// Run executes one distribution pass for asOf's calendar day. It is safe to
// call more than once per day: the Redis lock stops concurrent instances and
// the payout records themselves reject duplicates.
func (j *RoiDistributionJob) Run(ctx context.Context, asOf time.Time) {
	day := asOf.Format("2006-01-02")

	if !j.acquireDayLock(ctx, day) {
		log.Printf("ROI distribution for %s already claimed by another instance, skipping", day)
		return
	}

	summary, err := j.roiSvc.RunDailyDistribution(ctx, asOf)
	if err != nil {
		log.Printf("ROI distribution for %s failed: %v", day, err)
		return
	}

	log.Printf("ROI distribution for %s done: processed=%d paid=%s completed=%d expired=%d skipped=%d failed=%d",
		day, summary.Processed, summary.TotalPaid.String(), summary.Completed, summary.Expired, summary.Skipped, summary.Failed)
}

// acquireDayLock takes the distributed once-per-day lock. Without Redis the
// job runs unconditionally and relies on the payout unique keys alone.
func (j *RoiDistributionJob) acquireDayLock(ctx context.Context, day string) bool {
	if j.redis == nil {
		return true
	}

	key := "roi:run:" + day
	ok, err := j.redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), roiLockTTL).Result()
	if err != nil {
		// Redis being down must not stop payouts. The payout table still
		// dedupes, so running without the lock is safe.
		log.Printf("ROI day lock unavailable (%v), proceeding without it", err)
		return true
	}
	return ok
}
